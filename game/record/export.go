package record

import (
	"time"

	"github.com/beka-birhanu/navstudy/game"
)

// dangerThreshold is the learning hazard rate above which a category is
// labeled dangerous.
const dangerThreshold = 0.5

// Meta identifies a session.
type Meta struct {
	ParticipantID string    `json:"participantId" bson:"participant_id"`
	StudyID       string    `json:"studyId" bson:"study_id"`
	SessionID     string    `json:"sessionId" bson:"session_id"`
	StartedAt     time.Time `json:"startedAt" bson:"started_at"`
}

// Tally holds the running score and counters shown to the participant.
type Tally struct {
	Score     int `json:"score" bson:"score"`
	Successes int `json:"successes" bson:"successes"` // rewards collected
	Failures  int `json:"failures" bson:"failures"`   // hazards hit
}

// SessionExport is everything handed to persistence when a session ends.
type SessionExport struct {
	Meta             `bson:",inline"`
	Tally            `bson:",inline"`
	EndedAt          time.Time     `json:"endedAt" bson:"ended_at"`
	Elapsed          time.Duration `json:"elapsed" bson:"elapsed"`
	HighHazard       game.Category `json:"highHazard,omitempty" bson:"high_hazard,omitempty"`
	DangerousVehicle game.Category `json:"dangerousVehicle,omitempty" bson:"dangerous_vehicle,omitempty"`
	Records          []TrialRecord `json:"records" bson:"records"`
}

// NewExport assembles the export of a finished session.
func NewExport(meta Meta, tally Tally, highHazard game.Category, records []TrialRecord, endedAt time.Time) SessionExport {
	dangerous, _ := DangerousVehicle(records)
	return SessionExport{
		Meta:             meta,
		Tally:            tally,
		EndedAt:          endedAt,
		Elapsed:          endedAt.Sub(meta.StartedAt),
		HighHazard:       highHazard,
		DangerousVehicle: dangerous,
		Records:          append([]TrialRecord(nil), records...),
	}
}

// DangerousVehicle returns the learning category with the highest share of
// hazard trials, provided that share exceeds one half. Ties go to the
// category declared first.
func DangerousVehicle(records []TrialRecord) (game.Category, bool) {
	total := map[game.Category]int{}
	hazard := map[game.Category]int{}
	for _, r := range records {
		if r.Phase != PhaseLearning {
			continue
		}
		total[r.Category]++
		if r.Hazard {
			hazard[r.Category]++
		}
	}

	var best game.Category
	bestRate := 0.0
	for _, c := range game.Categories {
		if total[c] == 0 {
			continue
		}
		rate := float64(hazard[c]) / float64(total[c])
		if rate > bestRate {
			best, bestRate = c, rate
		}
	}

	if bestRate <= dangerThreshold {
		return 0, false
	}
	return best, true
}
