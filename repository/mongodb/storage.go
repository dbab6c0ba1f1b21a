package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assignado/internal/domain/errors"
	"assignado/internal/domain/models"
	"assignado/internal/logging"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	teamsCollection = "teams"
	tasksCollection = "tasks"
)

type Storage struct {
	client  *mongo.Client
	users   *mongo.Collection
	teams   *mongo.Collection
	tasks   *mongo.Collection
	timeout time.Duration
	log     *logrus.Entry
}

// NewStorage connects, pings and makes sure the unique indexes exist.
func NewStorage(ctx context.Context, uri, database string, timeout time.Duration) (*Storage, error) {
	log := logging.Component("mongodb")

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", errors.ErrStore, err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %v", errors.ErrStore, err)
	}

	db := client.Database(database)
	s := &Storage{
		client:  client,
		users:   db.Collection(usersCollection),
		teams:   db.Collection(teamsCollection),
		tasks:   db.Collection(tasksCollection),
		timeout: timeout,
		log:     log,
	}
	if err := s.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.WithField("database", database).Info("connected to MongoDB")
	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.teams, mongo.IndexModel{Keys: bson.D{{Key: "teamName", Value: 1}}, Options: unique}},
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique}},
		{s.tasks, mongo.IndexModel{Keys: bson.D{{Key: "assignedTo", Value: 1}, {Key: "status", Value: 1}}}},
		{s.tasks, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("%w: create index on %s: %v", errors.ErrStore, idx.coll.Name(), err)
		}
	}
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Storage) storeErr(op string, err error) error {
	s.log.WithError(err).WithField("op", op).Error("mongo operation failed")
	return fmt.Errorf("%w: %s: %v", errors.ErrStore, op, err)
}

// taskFilter translates the store-independent predicate to a query document.
func taskFilter(f models.TaskFilter) (bson.M, error) {
	var conds []bson.M
	if f.AssigneeID != "" {
		oid, err := objectID(f.AssigneeID)
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{"assignedTo": oid})
	}
	if f.Status != "" {
		conds = append(conds, bson.M{"status": string(f.Status)})
	}
	if !f.OverdueAt.IsZero() {
		conds = append(conds,
			bson.M{"status": bson.M{"$ne": string(models.StatusCompleted)}},
			bson.M{"dueDate": bson.M{"$lt": f.OverdueAt}},
		)
	}
	switch len(conds) {
	case 0:
		return bson.M{}, nil
	case 1:
		return conds[0], nil
	default:
		return bson.M{"$and": conds}, nil
	}
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc, err := toUserDoc(user)
	if err != nil {
		return err
	}
	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.ErrUserExists
		}
		return s.storeErr("insert user", err)
	}
	user.ID = objectIDHex(res.InsertedID, user.ID)
	return nil
}

func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc, err := toUserDoc(user)
	if err != nil {
		return errors.ErrUserNotFound
	}
	res, err := s.users.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.ErrUserExists
		}
		return s.storeErr("replace user", err)
	}
	if res.MatchedCount == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	oid, err := objectID(id)
	if err != nil {
		return errors.ErrUserNotFound
	}
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return s.storeErr("delete user", err)
	}
	if res.DeletedCount == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (s *Storage) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.ErrUserNotFound
		}
		return nil, s.storeErr("find user", err)
	}
	u := doc.model()
	return &u, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, errors.ErrUserNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(email)})
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Storage) findUsers(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.users.Find(ctx, filter, opts...)
	if err != nil {
		return nil, s.storeErr("find users", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, s.storeErr("decode users", err)
	}
	out := make([]models.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Storage) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	oids, err := objectIDs(ids)
	if err != nil {
		return nil, err
	}
	return s.findUsers(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (s *Storage) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	return s.findUsers(ctx, bson.M{"role": string(role)},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
}

func (s *Storage) CreateTeam(ctx context.Context, team *models.Team) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc, err := toTeamDoc(team)
	if err != nil {
		return err
	}
	res, err := s.teams.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.ErrTeamExists
		}
		return s.storeErr("insert team", err)
	}
	team.ID = objectIDHex(res.InsertedID, team.ID)
	return nil
}

func (s *Storage) findTeam(ctx context.Context, filter bson.M) (*models.Team, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc teamDoc
	if err := s.teams.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.ErrTeamNotFound
		}
		return nil, s.storeErr("find team", err)
	}
	t := doc.model()
	return &t, nil
}

func (s *Storage) GetTeamByID(ctx context.Context, id string) (*models.Team, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, errors.ErrTeamNotFound
	}
	return s.findTeam(ctx, bson.M{"_id": oid})
}

func (s *Storage) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	return s.findTeam(ctx, bson.M{"teamName": name})
}

func (s *Storage) ListTeams(ctx context.Context) ([]models.Team, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.teams.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, s.storeErr("find teams", err)
	}
	var docs []teamDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, s.storeErr("decode teams", err)
	}
	out := make([]models.Team, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Storage) UpdateTeam(ctx context.Context, team *models.Team) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc, err := toTeamDoc(team)
	if err != nil {
		return err
	}
	res, err := s.teams.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.ErrTeamExists
		}
		return s.storeErr("replace team", err)
	}
	if res.MatchedCount == 0 {
		return errors.ErrTeamNotFound
	}
	return nil
}

// AddTeamMembers unions members into the team with $addToSet, so concurrent
// merges cannot drop each other's additions.
func (s *Storage) AddTeamMembers(ctx context.Context, id string, members []string, at time.Time) (*models.Team, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	oid, err := objectID(id)
	if err != nil {
		return nil, errors.ErrTeamNotFound
	}
	oids, err := objectIDs(members)
	if err != nil {
		return nil, err
	}
	update := bson.M{
		"$addToSet": bson.M{"members": bson.M{"$each": oids}},
		"$set":      bson.M{"updatedAt": at},
	}
	var doc teamDoc
	err = s.teams.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.ErrTeamNotFound
		}
		return nil, s.storeErr("add team members", err)
	}
	t := doc.model()
	return &t, nil
}

func (s *Storage) DeleteTeam(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	oid, err := objectID(id)
	if err != nil {
		return errors.ErrTeamNotFound
	}
	res, err := s.teams.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return s.storeErr("delete team", err)
	}
	if res.DeletedCount == 0 {
		return errors.ErrTeamNotFound
	}
	return nil
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc, err := toTaskDoc(task)
	if err != nil {
		return err
	}
	res, err := s.tasks.InsertOne(ctx, doc)
	if err != nil {
		return s.storeErr("insert task", err)
	}
	task.ID = objectIDHex(res.InsertedID, task.ID)
	s.log.WithField("task", task.ID).Debug("task inserted")
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	oid, err := objectID(id)
	if err != nil {
		return nil, errors.ErrTaskNotFound
	}
	var doc taskDoc
	if err := s.tasks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.ErrTaskNotFound
		}
		return nil, s.storeErr("find task", err)
	}
	t := doc.model()
	return &t, nil
}

func (s *Storage) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	q, err := taskFilter(filter)
	if err != nil {
		return nil, err
	}
	cur, err := s.tasks.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, s.storeErr("find tasks", err)
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, s.storeErr("decode tasks", err)
	}
	out := make([]models.Task, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Storage) UpdateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc, err := toTaskDoc(task)
	if err != nil {
		return err
	}
	res, err := s.tasks.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return s.storeErr("replace task", err)
	}
	if res.MatchedCount == 0 {
		return errors.ErrTaskNotFound
	}
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	oid, err := objectID(id)
	if err != nil {
		return errors.ErrTaskNotFound
	}
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return s.storeErr("delete task", err)
	}
	if res.DeletedCount == 0 {
		return errors.ErrTaskNotFound
	}
	return nil
}

func (s *Storage) CountTasks(ctx context.Context, filter models.TaskFilter) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	q, err := taskFilter(filter)
	if err != nil {
		return 0, err
	}
	n, err := s.tasks.CountDocuments(ctx, q)
	if err != nil {
		return 0, s.storeErr("count tasks", err)
	}
	return n, nil
}

type groupCount struct {
	Key   string `bson:"_id"`
	Count int64  `bson:"count"`
}

func (s *Storage) groupBy(ctx context.Context, filter models.TaskFilter, field string) ([]groupCount, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	q, err := taskFilter(filter)
	if err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: q}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := s.tasks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, s.storeErr("aggregate tasks by "+field, err)
	}
	var rows []groupCount
	if err := cur.All(ctx, &rows); err != nil {
		return nil, s.storeErr("decode aggregation", err)
	}
	return rows, nil
}

func (s *Storage) CountByStatus(ctx context.Context, filter models.TaskFilter) (map[models.TaskStatus]int64, error) {
	rows, err := s.groupBy(ctx, filter, "status")
	if err != nil {
		return nil, err
	}
	out := make(map[models.TaskStatus]int64, len(rows))
	for _, r := range rows {
		out[models.TaskStatus(r.Key)] = r.Count
	}
	return out, nil
}

func (s *Storage) CountByPriority(ctx context.Context, filter models.TaskFilter) (map[models.Priority]int64, error) {
	rows, err := s.groupBy(ctx, filter, "priority")
	if err != nil {
		return nil, err
	}
	out := make(map[models.Priority]int64, len(rows))
	for _, r := range rows {
		out[models.Priority(r.Key)] = r.Count
	}
	return out, nil
}

func (s *Storage) RecentTasks(ctx context.Context, filter models.TaskFilter, limit int) ([]models.TaskSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	q, err := taskFilter(filter)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"title": 1, "status": 1, "priority": 1, "dueDate": 1, "createdAt": 1})
	cur, err := s.tasks.Find(ctx, q, opts)
	if err != nil {
		return nil, s.storeErr("find recent tasks", err)
	}
	var docs []summaryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, s.storeErr("decode recent tasks", err)
	}
	out := make([]models.TaskSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}
