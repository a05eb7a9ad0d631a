// Package store persists container snapshots to SQLite. It handles
// JSON serialization of the nested entity fields and keeps writes
// transactional so a snapshot is saved whole or not at all.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"go.uber.org/zap"

	"github.com/silvamed/ontoforge/errors"
	"github.com/silvamed/ontoforge/ontology"
)

// Query constants
const (
	entityInsertQuery = `
		INSERT INTO entities (id, kind, label, description, parent_id, attrs, specs, media_ref,
			confidence, status, tags, reviews, source_document, source_page, extraction_method,
			removed, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	relationshipInsertQuery = `
		INSERT INTO relationships (id, type, source_id, target_id, description, confidence,
			status, functional, symmetric, transitive, tags, reviews, removed, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	entitySelectQuery = `
		SELECT id, kind, label, description, parent_id, attrs, specs, media_ref,
			confidence, status, tags, reviews, source_document, source_page, extraction_method,
			removed, created_at, modified_at
		FROM entities ORDER BY created_at, id`

	relationshipSelectQuery = `
		SELECT id, type, source_id, target_id, description, confidence,
			status, functional, symmetric, transitive, tags, reviews, removed, created_at, modified_at
		FROM relationships ORDER BY created_at, id`

	entityCountQuery = `SELECT COUNT(*) FROM entities`
)

// Store reads and writes ontology snapshots against a SQLite database
// prepared by the db package migrations.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// New creates a snapshot store over an open database handle.
func New(db *sql.DB, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{db: db, logger: logger}
}

// entityAttrs is the single-column projection of the kind-specific
// attribute structs. Exactly one field is set per entity.
type entityAttrs struct {
	System    *ontology.SystemAttrs    `json:"system,omitempty"`
	Subsystem *ontology.SubsystemAttrs `json:"subsystem,omitempty"`
	Component *ontology.ComponentAttrs `json:"component,omitempty"`
	SparePart *ontology.SparePartAttrs `json:"spare_part,omitempty"`
}

// entityFields holds marshaled JSON columns for entity rows.
type entityFields struct {
	AttrsJSON   string
	SpecsJSON   string
	TagsJSON    string
	ReviewsJSON string
}

func marshalEntityFields(e *ontology.Entity) (*entityFields, error) {
	attrsJSON, err := json.Marshal(entityAttrs{
		System:    e.System,
		Subsystem: e.Subsystem,
		Component: e.Component,
		SparePart: e.SparePart,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal attrs")
	}

	specsJSON, err := json.Marshal(e.Specs)
	if err != nil {
		return nil, errors.Wrap(err, "marshal specs")
	}

	tagsJSON, err := json.Marshal(e.Meta.Tags)
	if err != nil {
		return nil, errors.Wrap(err, "marshal tags")
	}

	reviewsJSON, err := json.Marshal(e.Meta.Reviews)
	if err != nil {
		return nil, errors.Wrap(err, "marshal reviews")
	}

	return &entityFields{
		AttrsJSON:   string(attrsJSON),
		SpecsJSON:   string(specsJSON),
		TagsJSON:    string(tagsJSON),
		ReviewsJSON: string(reviewsJSON),
	}, nil
}

// Save writes the snapshot as the new database contents, replacing any
// previous snapshot. Entities are inserted parents-first so the
// parent_id foreign key holds row by row.
func (s *Store) Save(ctx context.Context, snap *ontology.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin snapshot tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM relationships"); err != nil {
		return errors.Wrap(err, "clear relationships")
	}
	// Children first so the parent_id foreign key holds during the clear.
	for i := len(ontology.Kinds) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entities WHERE kind = ?", string(ontology.Kinds[i])); err != nil {
			return errors.Wrapf(err, "clear %s entities", ontology.Kinds[i])
		}
	}

	entities := append([]*ontology.Entity(nil), snap.Entities...)
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Kind.Depth() < entities[j].Kind.Depth()
	})

	for _, e := range entities {
		fields, err := marshalEntityFields(e)
		if err != nil {
			return errors.Wrapf(err, "entity %s", e.ID)
		}

		_, err = tx.ExecContext(ctx, entityInsertQuery,
			e.ID,
			string(e.Kind),
			e.Label,
			e.Description,
			nullableString(e.ParentID),
			fields.AttrsJSON,
			fields.SpecsJSON,
			e.MediaRef,
			e.Meta.Confidence,
			string(e.Meta.Status),
			fields.TagsJSON,
			fields.ReviewsJSON,
			e.Meta.SourceDocument,
			e.Meta.SourcePage,
			e.Meta.ExtractionMethod,
			e.Removed,
			e.Meta.CreatedAt,
			e.Meta.ModifiedAt,
		)
		if err != nil {
			return errors.Wrapf(err, "insert entity %s", e.ID)
		}
	}

	for _, r := range snap.Relationships {
		tagsJSON, err := json.Marshal(r.Meta.Tags)
		if err != nil {
			return errors.Wrapf(err, "marshal tags for relationship %s", r.ID)
		}
		reviewsJSON, err := json.Marshal(r.Meta.Reviews)
		if err != nil {
			return errors.Wrapf(err, "marshal reviews for relationship %s", r.ID)
		}

		_, err = tx.ExecContext(ctx, relationshipInsertQuery,
			r.ID,
			string(r.Type),
			r.SourceID,
			r.TargetID,
			r.Description,
			r.Meta.Confidence,
			string(r.Meta.Status),
			r.Functional,
			r.Symmetric,
			r.Transitive,
			string(tagsJSON),
			string(reviewsJSON),
			r.Removed,
			r.Meta.CreatedAt,
			r.Meta.ModifiedAt,
		)
		if err != nil {
			return errors.Wrapf(err, "insert relationship %s", r.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit snapshot")
	}

	s.logger.Infow("Snapshot saved",
		"entities", len(snap.Entities),
		"relationships", len(snap.Relationships),
	)
	return nil
}

// Load reads the stored snapshot. The result feeds Container.Restore,
// which replays every row through the runtime invariant checks.
func (s *Store) Load(ctx context.Context) (*ontology.Snapshot, error) {
	snap := &ontology.Snapshot{}

	rows, err := s.db.QueryContext(ctx, entitySelectQuery)
	if err != nil {
		return nil, errors.Wrap(err, "query entities")
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan entity")
		}
		snap.Entities = append(snap.Entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate entities")
	}

	relRows, err := s.db.QueryContext(ctx, relationshipSelectQuery)
	if err != nil {
		return nil, errors.Wrap(err, "query relationships")
	}
	defer relRows.Close()

	for relRows.Next() {
		r, err := scanRelationship(relRows)
		if err != nil {
			return nil, errors.Wrap(err, "scan relationship")
		}
		snap.Relationships = append(snap.Relationships, r)
	}
	if err := relRows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate relationships")
	}

	return snap, nil
}

// EntityCount reports how many entity rows are stored, removed rows
// included. Zero means no snapshot has been saved yet.
func (s *Store) EntityCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, entityCountQuery).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count entities")
	}
	return count, nil
}

func scanEntity(rows *sql.Rows) (*ontology.Entity, error) {
	var (
		e          ontology.Entity
		kind       string
		parentID   sql.NullString
		status     string
		attrsJSON  string
		specsJSON  string
		tagsJSON   string
		reviewJSON string
	)

	err := rows.Scan(
		&e.ID,
		&kind,
		&e.Label,
		&e.Description,
		&parentID,
		&attrsJSON,
		&specsJSON,
		&e.MediaRef,
		&e.Meta.Confidence,
		&status,
		&tagsJSON,
		&reviewJSON,
		&e.Meta.SourceDocument,
		&e.Meta.SourcePage,
		&e.Meta.ExtractionMethod,
		&e.Removed,
		&e.Meta.CreatedAt,
		&e.Meta.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Kind = ontology.Kind(kind)
	e.Meta.Status = ontology.ValidationStatus(status)
	if parentID.Valid {
		e.ParentID = parentID.String
	}

	var attrs entityAttrs
	if err := json.Unmarshal([]byte(attrsJSON), &attrs); err != nil {
		return nil, errors.Wrap(err, "unmarshal attrs")
	}
	e.System = attrs.System
	e.Subsystem = attrs.Subsystem
	e.Component = attrs.Component
	e.SparePart = attrs.SparePart

	if err := json.Unmarshal([]byte(specsJSON), &e.Specs); err != nil {
		return nil, errors.Wrap(err, "unmarshal specs")
	}
	if err := json.Unmarshal([]byte(tagsJSON), &e.Meta.Tags); err != nil {
		return nil, errors.Wrap(err, "unmarshal tags")
	}
	if err := json.Unmarshal([]byte(reviewJSON), &e.Meta.Reviews); err != nil {
		return nil, errors.Wrap(err, "unmarshal reviews")
	}

	return &e, nil
}

func scanRelationship(rows *sql.Rows) (*ontology.Relationship, error) {
	var (
		r          ontology.Relationship
		relType    string
		status     string
		tagsJSON   string
		reviewJSON string
	)

	err := rows.Scan(
		&r.ID,
		&relType,
		&r.SourceID,
		&r.TargetID,
		&r.Description,
		&r.Meta.Confidence,
		&status,
		&r.Functional,
		&r.Symmetric,
		&r.Transitive,
		&tagsJSON,
		&reviewJSON,
		&r.Removed,
		&r.Meta.CreatedAt,
		&r.Meta.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Type = ontology.RelationType(relType)
	r.Meta.Status = ontology.ValidationStatus(status)

	if err := json.Unmarshal([]byte(tagsJSON), &r.Meta.Tags); err != nil {
		return nil, errors.Wrap(err, "unmarshal tags")
	}
	if err := json.Unmarshal([]byte(reviewJSON), &r.Meta.Reviews); err != nil {
		return nil, errors.Wrap(err, "unmarshal reviews")
	}

	return &r, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
