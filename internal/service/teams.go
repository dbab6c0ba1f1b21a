package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"assignado/internal/domain/errors"
	"assignado/internal/domain/models"
	"assignado/internal/logging"

	"github.com/sirupsen/logrus"
)

// MaxTeamDescription bounds team descriptions, counted in characters.
const MaxTeamDescription = 100

type TeamAction string

const (
	TeamCreated TeamAction = "created"
	TeamUpdated TeamAction = "updated"
)

// ResolveResult is the outcome of binding a task to a team. Created is set
// only when the resolver inserted a brand-new team; Added lists the members
// the call introduced.
type ResolveResult struct {
	Team    *models.Team
	Created bool
	Added   []string
}

func (r ResolveResult) Action() TeamAction {
	if r.Created {
		return TeamCreated
	}
	return TeamUpdated
}

type TeamService struct {
	teams TeamRepository
	users UserRepository
	now   func() time.Time
	log   *logrus.Entry
}

func NewTeamService(teams TeamRepository, users UserRepository) *TeamService {
	return &TeamService{
		teams: teams,
		users: users,
		now:   time.Now,
		log:   logging.Component("teams"),
	}
}

// Resolve finds the team a new task belongs to. A syntactically valid teamID
// wins; otherwise teamName is looked up and, when absent, a team with that
// name is created from the assignees. An existing team gains any assignee it
// does not already hold.
func (s *TeamService) Resolve(ctx context.Context, teamID, teamName string, assignees []string, taskTitle string) (ResolveResult, error) {
	if models.IsValidID(teamID) {
		team, err := s.teams.GetTeamByID(ctx, teamID)
		if err != nil {
			return ResolveResult{}, err
		}
		return s.merge(ctx, team, assignees)
	}

	name := strings.TrimSpace(teamName)
	if name == "" {
		return ResolveResult{}, errors.ErrTeamRequired
	}

	team, err := s.teams.GetTeamByName(ctx, name)
	if err == nil {
		return s.merge(ctx, team, assignees)
	}
	if !errors.Is(err, errors.ErrTeamNotFound) {
		return ResolveResult{}, err
	}

	now := s.now()
	team = &models.Team{
		TeamName:    name,
		Description: truncate(fmt.Sprintf("Team created for task: %s", taskTitle), MaxTeamDescription),
		Members:     dedupe(assignees),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		if !errors.Is(err, errors.ErrTeamExists) {
			return ResolveResult{}, err
		}
		// Another request created the name between our read and insert.
		existing, gerr := s.teams.GetTeamByName(ctx, name)
		if gerr != nil {
			return ResolveResult{}, gerr
		}
		return s.merge(ctx, existing, assignees)
	}

	s.log.WithFields(logrus.Fields{"team": team.ID, "name": name, "members": len(team.Members)}).Info("created team for task")
	return ResolveResult{Team: team, Created: true, Added: team.Members}, nil
}

// merge adds missing assignees to team. Nothing is written when every
// assignee is already a member.
func (s *TeamService) merge(ctx context.Context, team *models.Team, assignees []string) (ResolveResult, error) {
	added := missingMembers(team, assignees)
	if len(added) == 0 {
		return ResolveResult{Team: team}, nil
	}

	updated, err := s.teams.AddTeamMembers(ctx, team.ID, added, s.now())
	if err != nil {
		return ResolveResult{}, err
	}
	s.log.WithFields(logrus.Fields{"team": team.ID, "added": len(added)}).Info("added task assignees to team")
	return ResolveResult{Team: updated, Added: added}, nil
}

func (s *TeamService) Create(ctx context.Context, req models.CreateTeamRequest) (*models.TeamDetail, error) {
	name := strings.TrimSpace(req.TeamName)
	if name == "" {
		return nil, errors.ErrTeamNameRequired
	}
	desc, err := teamDescription(req.Description)
	if err != nil {
		return nil, err
	}
	members, err := s.validateMembers(ctx, req.Members)
	if err != nil {
		return nil, err
	}

	now := s.now()
	team := &models.Team{
		TeamName:    name,
		Description: desc,
		Members:     members,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	s.log.WithField("team", team.ID).Info("team created")
	return s.detail(ctx, team)
}

func (s *TeamService) Update(ctx context.Context, id string, req models.UpdateTeamRequest) (*models.TeamDetail, error) {
	if !models.IsValidID(id) {
		return nil, errors.ErrInvalidID
	}
	team, err := s.teams.GetTeamByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.TeamName != nil {
		name := strings.TrimSpace(*req.TeamName)
		if name == "" {
			return nil, fmt.Errorf("%w: team name cannot be empty", errors.ErrValidationFailed)
		}
		team.TeamName = name
	}
	if req.Description != nil {
		desc, err := teamDescription(*req.Description)
		if err != nil {
			return nil, err
		}
		team.Description = desc
	}
	if req.Members != nil {
		members, err := s.validateMembers(ctx, *req.Members)
		if err != nil {
			return nil, err
		}
		team.Members = members
	}
	team.UpdatedAt = s.now()

	if err := s.teams.UpdateTeam(ctx, team); err != nil {
		return nil, err
	}
	return s.detail(ctx, team)
}

// Delete removes the team only; tasks keep their now dangling reference.
func (s *TeamService) Delete(ctx context.Context, id string) error {
	if !models.IsValidID(id) {
		return errors.ErrInvalidID
	}
	if err := s.teams.DeleteTeam(ctx, id); err != nil {
		return err
	}
	s.log.WithField("team", id).Info("team deleted")
	return nil
}

func (s *TeamService) List(ctx context.Context) ([]models.TeamDetail, error) {
	teams, err := s.teams.ListTeams(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, t := range teams {
		ids = append(ids, t.Members...)
	}
	dir, err := loadDirectory(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.TeamDetail, 0, len(teams))
	for i := range teams {
		out = append(out, teamDetail(&teams[i], dir))
	}
	return out, nil
}

func (s *TeamService) detail(ctx context.Context, team *models.Team) (*models.TeamDetail, error) {
	dir, err := loadDirectory(ctx, s.users, team.Members)
	if err != nil {
		return nil, err
	}
	d := teamDetail(team, dir)
	return &d, nil
}

// validateMembers requires every id to name an existing user.
func (s *TeamService) validateMembers(ctx context.Context, members []string) ([]string, error) {
	ids := dedupe(members)
	if len(ids) == 0 {
		return []string{}, nil
	}
	for _, id := range ids {
		if !models.IsValidID(id) {
			return nil, errors.ErrInvalidMembers
		}
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		return nil, errors.ErrInvalidMembers
	}
	return ids, nil
}

func teamDetail(t *models.Team, dir directory) models.TeamDetail {
	return models.TeamDetail{
		ID:          t.ID,
		TeamName:    t.TeamName,
		Description: t.Description,
		Members:     dir.refs(t.Members),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func teamDescription(raw string) (string, error) {
	desc := strings.TrimSpace(raw)
	if utf8.RuneCountInString(desc) > MaxTeamDescription {
		return "", errors.ErrDescriptionTooLong
	}
	return desc, nil
}

func missingMembers(team *models.Team, assignees []string) []string {
	var added []string
	for _, id := range dedupe(assignees) {
		if !team.HasMember(id) {
			added = append(added, id)
		}
	}
	return added
}

// dedupe keeps first occurrences in order. It never returns nil.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
