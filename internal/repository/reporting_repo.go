package repository

import (
	"context"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	"github.com/noah-isme/teacher-dashboard-api/pkg/wpmeta"
)

// maxInClause bounds the number of bind parameters sent in a single IN list.
const maxInClause = 500

// The host schema spells primary keys of users and posts in upper case, so they
// are quoted through clauses to stay portable across dialects.
var (
	idColumn = clause.Column{Name: "ID"}
	byID     = clause.OrderByColumn{Column: idColumn}
)

// Tables resolves host table names for a table prefix.
type Tables struct {
	Prefix       string
	Users        string
	UserMeta     string
	Posts        string
	Activity     string
	ActivityMeta string
}

// NewTables builds the table names used by the reporting repository.
func NewTables(prefix string) Tables {
	return Tables{
		Prefix:       prefix,
		Users:        prefix + models.TableUsers,
		UserMeta:     prefix + models.TableUserMeta,
		Posts:        prefix + models.TablePosts,
		Activity:     prefix + models.TableUserActivity,
		ActivityMeta: prefix + models.TableUserActivityMeta,
	}
}

// GroupAssociation is a decoded leader or member link between a user and a group.
type GroupAssociation struct {
	UserID   uint64
	GroupID  uint64
	Relation wpmeta.Relation
}

// AssociationFilter narrows group association lookups.
// A nil slice leaves that dimension unfiltered; an empty non-nil slice matches nothing.
type AssociationFilter struct {
	Relation wpmeta.Relation
	UserIDs  []uint64
	GroupIDs []uint64
}

// GroupFilter narrows group lookups.
type GroupFilter struct {
	IDs    []uint64
	Status string
}

// ActivityFilter narrows activity lookups.
type ActivityFilter struct {
	UserIDs       []uint64
	Type          string
	CompletedOnly bool
}

// ReportingRepository reads the host platform tables backing the dashboard.
type ReportingRepository interface {
	GetUser(ctx context.Context, id uint64) (models.User, error)
	ListUsers(ctx context.Context, ids []uint64) ([]models.User, error)
	ListCapabilities(ctx context.Context, userIDs []uint64) (map[uint64]string, error)
	ListGroupAssociations(ctx context.Context, filter AssociationFilter) ([]GroupAssociation, error)
	ListGroups(ctx context.Context, filter GroupFilter) ([]models.Post, error)
	ListPosts(ctx context.Context, ids []uint64) ([]models.Post, error)
	ListActivities(ctx context.Context, filter ActivityFilter) ([]models.UserActivity, error)
	CountActivitiesByUser(ctx context.Context, filter ActivityFilter) (map[uint64]int64, error)
	ListActivityMetrics(ctx context.Context, activityIDs []uint64, key string) (map[uint64]string, error)
}

type reportingRepository struct {
	db     *gorm.DB
	tables Tables
}

// NewReportingRepository constructs the repository for the given table prefix.
func NewReportingRepository(db *gorm.DB, tables Tables) ReportingRepository {
	return &reportingRepository{db: db, tables: tables}
}

func (r *reportingRepository) GetUser(ctx context.Context, id uint64) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Table(r.tables.Users).
		Where(clause.Eq{Column: idColumn, Value: id}).
		First(&user).Error
	return user, err
}

func (r *reportingRepository) ListUsers(ctx context.Context, ids []uint64) ([]models.User, error) {
	users := make([]models.User, 0)
	if ids == nil {
		err := r.db.WithContext(ctx).Table(r.tables.Users).Order(byID).Find(&users).Error
		return users, err
	}

	err := inChunks(ids, func(chunk []uint64) error {
		var batch []models.User
		if err := r.db.WithContext(ctx).Table(r.tables.Users).Where(idIn(chunk)).Find(&batch).Error; err != nil {
			return err
		}
		users = append(users, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *reportingRepository) ListCapabilities(ctx context.Context, userIDs []uint64) (map[uint64]string, error) {
	key := wpmeta.CapabilitiesKey(r.tables.Prefix)
	result := make(map[uint64]string)

	collect := func(rows []models.UserMeta) {
		for _, row := range rows {
			result[row.UserID] = derefString(row.MetaValue)
		}
	}

	if userIDs == nil {
		var rows []models.UserMeta
		err := r.db.WithContext(ctx).
			Table(r.tables.UserMeta).
			Where("meta_key = ?", key).
			Order("umeta_id").
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		collect(rows)
		return result, nil
	}

	err := inChunks(userIDs, func(chunk []uint64) error {
		var rows []models.UserMeta
		err := r.db.WithContext(ctx).
			Table(r.tables.UserMeta).
			Where("meta_key = ?", key).
			Where("user_id IN ?", chunk).
			Order("umeta_id").
			Find(&rows).Error
		if err != nil {
			return err
		}
		collect(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *reportingRepository) ListGroupAssociations(ctx context.Context, filter AssociationFilter) ([]GroupAssociation, error) {
	if isEmptyFilter(filter.UserIDs) || isEmptyFilter(filter.GroupIDs) {
		return []GroupAssociation{}, nil
	}

	relations := []wpmeta.Relation{wpmeta.RelationLeader, wpmeta.RelationMember}
	if filter.Relation != "" {
		relations = []wpmeta.Relation{filter.Relation}
	}

	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).
			Table(r.tables.UserMeta).
			Select("umeta_id", "user_id", "meta_key")
		if filter.UserIDs != nil {
			query = query.Where("user_id IN ?", filter.UserIDs)
		}
		return query
	}

	var rows []models.UserMeta
	if filter.GroupIDs != nil {
		keys := make([]string, 0, len(filter.GroupIDs)*len(relations))
		for _, groupID := range filter.GroupIDs {
			for _, relation := range relations {
				keys = append(keys, wpmeta.GroupKeyFor(relation, groupID))
			}
		}
		for start := 0; start < len(keys); start += maxInClause {
			end := min(start+maxInClause, len(keys))
			var batch []models.UserMeta
			if err := base().Where("meta_key IN ?", keys[start:end]).Find(&batch).Error; err != nil {
				return nil, err
			}
			rows = append(rows, batch...)
		}
	} else {
		query := base()
		if len(relations) == 1 {
			query = query.Where("meta_key LIKE ?", wpmeta.GroupKeyPattern(relations[0]))
		} else {
			query = query.Where("(meta_key LIKE ? OR meta_key LIKE ?)",
				wpmeta.GroupKeyPattern(relations[0]), wpmeta.GroupKeyPattern(relations[1]))
		}
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
	}

	return decodeAssociations(rows), nil
}

// decodeAssociations turns raw meta rows into unique associations, skipping keys
// that do not follow the group key grammar.
func decodeAssociations(rows []models.UserMeta) []GroupAssociation {
	seen := make(map[GroupAssociation]struct{}, len(rows))
	associations := make([]GroupAssociation, 0, len(rows))
	for _, row := range rows {
		key, ok := wpmeta.ParseGroupKey(row.MetaKey)
		if !ok {
			continue
		}
		association := GroupAssociation{UserID: row.UserID, GroupID: key.GroupID, Relation: key.Relation}
		if _, dup := seen[association]; dup {
			continue
		}
		seen[association] = struct{}{}
		associations = append(associations, association)
	}

	sort.Slice(associations, func(i, j int) bool {
		a, b := associations[i], associations[j]
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.Relation != b.Relation {
			return a.Relation < b.Relation
		}
		return a.UserID < b.UserID
	})
	return associations
}

func (r *reportingRepository) ListGroups(ctx context.Context, filter GroupFilter) ([]models.Post, error) {
	groups := make([]models.Post, 0)
	if isEmptyFilter(filter.IDs) {
		return groups, nil
	}

	query := r.db.WithContext(ctx).
		Table(r.tables.Posts).
		Where("post_type = ?", models.PostTypeGroup)
	if filter.Status != "" {
		query = query.Where("post_status = ?", filter.Status)
	}
	if filter.IDs != nil {
		query = query.Where(idIn(filter.IDs))
	}

	err := query.Order(byID).Find(&groups).Error
	return groups, err
}

func (r *reportingRepository) ListPosts(ctx context.Context, ids []uint64) ([]models.Post, error) {
	posts := make([]models.Post, 0, len(ids))
	err := inChunks(ids, func(chunk []uint64) error {
		var batch []models.Post
		if err := r.db.WithContext(ctx).Table(r.tables.Posts).Where(idIn(chunk)).Find(&batch).Error; err != nil {
			return err
		}
		posts = append(posts, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (r *reportingRepository) activityQuery(ctx context.Context, filter ActivityFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Table(r.tables.Activity)
	if filter.Type != "" {
		query = query.Where("activity_type = ?", filter.Type)
	}
	if filter.CompletedOnly {
		query = query.Where("activity_status = ?", true)
	}
	return query
}

func (r *reportingRepository) ListActivities(ctx context.Context, filter ActivityFilter) ([]models.UserActivity, error) {
	activities := make([]models.UserActivity, 0)
	if filter.UserIDs == nil {
		err := r.activityQuery(ctx, filter).Order("activity_id").Find(&activities).Error
		return activities, err
	}

	err := inChunks(filter.UserIDs, func(chunk []uint64) error {
		var batch []models.UserActivity
		if err := r.activityQuery(ctx, filter).Where("user_id IN ?", chunk).Find(&batch).Error; err != nil {
			return err
		}
		activities = append(activities, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(activities, func(i, j int) bool { return activities[i].ActivityID < activities[j].ActivityID })
	return activities, nil
}

func (r *reportingRepository) CountActivitiesByUser(ctx context.Context, filter ActivityFilter) (map[uint64]int64, error) {
	type countRow struct {
		UserID uint64
		Total  int64
	}

	counts := make(map[uint64]int64)
	scan := func(query *gorm.DB) error {
		var rows []countRow
		if err := query.Select("user_id, COUNT(*) AS total").Group("user_id").Scan(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			counts[row.UserID] += row.Total
		}
		return nil
	}

	if filter.UserIDs == nil {
		if err := scan(r.activityQuery(ctx, filter)); err != nil {
			return nil, err
		}
		return counts, nil
	}

	err := inChunks(filter.UserIDs, func(chunk []uint64) error {
		return scan(r.activityQuery(ctx, filter).Where("user_id IN ?", chunk))
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *reportingRepository) ListActivityMetrics(ctx context.Context, activityIDs []uint64, key string) (map[uint64]string, error) {
	metrics := make(map[uint64]string, len(activityIDs))
	err := inChunks(activityIDs, func(chunk []uint64) error {
		var rows []models.UserActivityMeta
		err := r.db.WithContext(ctx).
			Table(r.tables.ActivityMeta).
			Where("activity_meta_key = ?", key).
			Where("activity_id IN ?", chunk).
			Order("activity_meta_id").
			Find(&rows).Error
		if err != nil {
			return err
		}
		for _, row := range rows {
			metrics[row.ActivityID] = derefString(row.ActivityMetaValue)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

func inChunks(ids []uint64, fn func(chunk []uint64) error) error {
	for start := 0; start < len(ids); start += maxInClause {
		end := min(start+maxInClause, len(ids))
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func idIn(ids []uint64) clause.IN {
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return clause.IN{Column: idColumn, Values: values}
}

func isEmptyFilter(ids []uint64) bool {
	return ids != nil && len(ids) == 0
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
