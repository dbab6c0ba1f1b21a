package mongodb

import (
	"strings"
	"time"

	"assignado/internal/domain/errors"
	"assignado/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Name            string             `bson:"name"`
	Username        string             `bson:"username"`
	Email           string             `bson:"email"`
	Password        string             `bson:"password"`
	Role            string             `bson:"role"`
	Bio             string             `bson:"bio,omitempty"`
	ProfileImageURL string             `bson:"profileImageUrl,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

type teamDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	TeamName    string               `bson:"teamName"`
	Description string               `bson:"description"`
	Members     []primitive.ObjectID `bson:"members"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

type taskDoc struct {
	ID            primitive.ObjectID     `bson:"_id,omitempty"`
	Title         string                 `bson:"title"`
	Description   string                 `bson:"description"`
	Priority      string                 `bson:"priority"`
	Status        string                 `bson:"status"`
	DueDate       *time.Time             `bson:"dueDate,omitempty"`
	Progress      int                    `bson:"progress"`
	TodoCheckList []models.ChecklistItem `bson:"todoCheckList"`
	AssignedTo    []primitive.ObjectID   `bson:"assignedTo"`
	Team          *primitive.ObjectID    `bson:"team,omitempty"`
	CreatedBy     *primitive.ObjectID    `bson:"createdBy,omitempty"`
	Attachments   []string               `bson:"attachments"`
	CreatedAt     time.Time              `bson:"createdAt"`
	UpdatedAt     time.Time              `bson:"updatedAt"`
}

type summaryDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Status    string             `bson:"status"`
	Priority  string             `bson:"priority"`
	DueDate   *time.Time         `bson:"dueDate,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errors.ErrInvalidID
	}
	return oid, nil
}

func objectIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := objectID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

func optionalID(id string) (*primitive.ObjectID, error) {
	if id == "" {
		return nil, nil
	}
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

func hexes(oids []primitive.ObjectID) []string {
	out := make([]string, 0, len(oids))
	for _, oid := range oids {
		out = append(out, oid.Hex())
	}
	return out
}

func toUserDoc(u *models.User) (userDoc, error) {
	doc := userDoc{
		Name:            u.Name,
		Username:        u.Username,
		Email:           strings.ToLower(u.Email),
		Password:        u.Password,
		Role:            string(u.Role),
		Bio:             u.Bio,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	if u.ID != "" {
		oid, err := objectID(u.ID)
		if err != nil {
			return userDoc{}, err
		}
		doc.ID = oid
	}
	return doc, nil
}

func (d userDoc) model() models.User {
	return models.User{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Username:        d.Username,
		Email:           d.Email,
		Password:        d.Password,
		Role:            models.Role(d.Role),
		Bio:             d.Bio,
		ProfileImageURL: d.ProfileImageURL,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func toTeamDoc(t *models.Team) (teamDoc, error) {
	members, err := objectIDs(t.Members)
	if err != nil {
		return teamDoc{}, err
	}
	doc := teamDoc{
		TeamName:    t.TeamName,
		Description: t.Description,
		Members:     members,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.ID != "" {
		oid, err := objectID(t.ID)
		if err != nil {
			return teamDoc{}, err
		}
		doc.ID = oid
	}
	return doc, nil
}

func (d teamDoc) model() models.Team {
	return models.Team{
		ID:          d.ID.Hex(),
		TeamName:    d.TeamName,
		Description: d.Description,
		Members:     hexes(d.Members),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func toTaskDoc(t *models.Task) (taskDoc, error) {
	assignees, err := objectIDs(t.AssignedTo)
	if err != nil {
		return taskDoc{}, err
	}
	team, err := optionalID(t.Team)
	if err != nil {
		return taskDoc{}, err
	}
	creator, err := optionalID(t.CreatedBy)
	if err != nil {
		return taskDoc{}, err
	}
	doc := taskDoc{
		Title:         t.Title,
		Description:   t.Description,
		Priority:      string(t.Priority),
		Status:        string(t.Status),
		DueDate:       t.DueDate,
		Progress:      t.Progress,
		TodoCheckList: t.TodoCheckList,
		AssignedTo:    assignees,
		Team:          team,
		CreatedBy:     creator,
		Attachments:   t.Attachments,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.ID != "" {
		oid, err := objectID(t.ID)
		if err != nil {
			return taskDoc{}, err
		}
		doc.ID = oid
	}
	return doc, nil
}

func (d taskDoc) model() models.Task {
	t := models.Task{
		ID:            d.ID.Hex(),
		Title:         d.Title,
		Description:   d.Description,
		Priority:      models.Priority(d.Priority),
		Status:        models.TaskStatus(d.Status),
		DueDate:       d.DueDate,
		Progress:      d.Progress,
		TodoCheckList: d.TodoCheckList,
		AssignedTo:    hexes(d.AssignedTo),
		Attachments:   d.Attachments,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.Team != nil {
		t.Team = d.Team.Hex()
	}
	if d.CreatedBy != nil {
		t.CreatedBy = d.CreatedBy.Hex()
	}
	if t.TodoCheckList == nil {
		t.TodoCheckList = []models.ChecklistItem{}
	}
	if t.Attachments == nil {
		t.Attachments = []string{}
	}
	return t
}

func (d summaryDoc) model() models.TaskSummary {
	return models.TaskSummary{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Status:    models.TaskStatus(d.Status),
		Priority:  models.Priority(d.Priority),
		DueDate:   d.DueDate,
		CreatedAt: d.CreatedAt,
	}
}

// objectIDHex returns the hex of an inserted id, or fallback when the driver
// reports something other than an ObjectID.
func objectIDHex(inserted interface{}, fallback string) string {
	if oid, ok := inserted.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fallback
}
