package repo

import (
	"context"
	"errors"
	"time"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/record"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultSaveTimeout = 5 * time.Second

var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionRepo handles the persistence of session exports.
type SessionRepo struct {
	collection *mongo.Collection
}

// NewSessionRepo creates a new SessionRepo with the given MongoDB client, database name, and collection name.
func NewSessionRepo(client *mongo.Client, dbName, collectionName string) *SessionRepo {
	collection := client.Database(dbName).Collection(collectionName)
	return &SessionRepo{
		collection: collection,
	}
}

// Save inserts or replaces the export of a session, keyed by its session id.
func (s *SessionRepo) Save(ctx context.Context, export record.SessionExport) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultSaveTimeout)
		defer cancel()
	}

	filter := bson.M{"_id": export.SessionID}
	update := bson.M{"$set": sessionFields(export, time.Now())}

	opts := options.Update().SetUpsert(true)
	_, err := s.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return errors.New("unexpected error: " + err.Error())
	}

	return nil
}

// ByID retrieves a stored export by its session id.
func (s *SessionRepo) ByID(ctx context.Context, sessionID string) (*record.SessionExport, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var doc struct {
		ID            string               `bson:"_id"`
		ParticipantID string               `bson:"participant_id"`
		StudyID       string               `bson:"study_id"`
		StartedAt     time.Time            `bson:"started_at"`
		EndedAt       time.Time            `bson:"ended_at"`
		ElapsedMS     int64                `bson:"elapsed_ms"`
		Score         int                  `bson:"score"`
		Successes     int                  `bson:"successes"`
		Failures      int                  `bson:"failures"`
		HighHazard    string               `bson:"high_hazard"`
		Dangerous     string               `bson:"dangerous_vehicle"`
		Records       []record.TrialRecord `bson:"records"`
	}
	if err := s.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrSessionNotFound
		}
		return nil, errors.New("unexpected error: " + err.Error())
	}

	// Unknown names decode to the zero category.
	highHazard, _ := game.ParseCategory(doc.HighHazard)
	dangerous, _ := game.ParseCategory(doc.Dangerous)

	return &record.SessionExport{
		Meta:             record.Meta{ParticipantID: doc.ParticipantID, StudyID: doc.StudyID, SessionID: doc.ID, StartedAt: doc.StartedAt},
		Tally:            record.Tally{Score: doc.Score, Successes: doc.Successes, Failures: doc.Failures},
		EndedAt:          doc.EndedAt,
		Elapsed:          time.Duration(doc.ElapsedMS) * time.Millisecond,
		HighHazard:       highHazard,
		DangerousVehicle: dangerous,
		Records:          doc.Records,
	}, nil
}

// sessionFields is the stored document of an export, minus its id.
func sessionFields(export record.SessionExport, updatedAt time.Time) bson.M {
	return bson.M{
		"participant_id":    export.ParticipantID,
		"study_id":          export.StudyID,
		"started_at":        export.StartedAt,
		"ended_at":          export.EndedAt,
		"elapsed_ms":        export.Elapsed.Milliseconds(),
		"score":             export.Score,
		"successes":         export.Successes,
		"failures":          export.Failures,
		"high_hazard":       categoryName(export.HighHazard),
		"dangerous_vehicle": categoryName(export.DangerousVehicle),
		"records":           export.Records,
		"updatedAt":         updatedAt,
	}
}

// categoryName stores the zero category as an empty string.
func categoryName(c game.Category) string {
	if c == 0 {
		return ""
	}
	return c.String()
}
