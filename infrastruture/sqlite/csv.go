package sqlite

import (
	"encoding/csv"
	"io"
	"strconv"
)

var csvHeader = []string{
	"sessionId", "participantId", "phase", "trialIndex", "mazeId", "vehicle", "kind", "size",
	"hazard", "hazardProb", "memory", "optimal", "realized",
	"rawSeq", "validSeq", "correctSeq", "validCount", "correctCount", "correctHL", "correctLL",
	"biasValid", "biasCorrect", "genOrder",
	"rewardsCollected", "hazardsHit", "blockedMoves", "accuracy", "reactionMs", "durationMs", "dangerous",
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []TrialRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.SessionID, r.ParticipantID, r.Phase, strconv.Itoa(r.TrialIndex), r.MazeID, r.Vehicle, r.Kind, r.Size,
			strconv.FormatBool(r.Hazard), strconv.FormatFloat(r.HazardProb, 'f', -1, 64), strconv.FormatBool(r.Memory),
			r.Optimal, r.Realized,
			r.RawSeq, r.ValidSeq, r.CorrectSeq, strconv.Itoa(r.ValidCount), strconv.Itoa(r.CorrectCount),
			strconv.Itoa(r.CorrectHL), strconv.Itoa(r.CorrectLL),
			strconv.Itoa(r.BiasValid), strconv.Itoa(r.BiasCorrect), r.GenOrder,
			strconv.Itoa(r.RewardsCollected), strconv.Itoa(r.HazardsHit), strconv.Itoa(r.BlockedMoves),
			strconv.FormatFloat(r.Accuracy, 'f', -1, 64),
			strconv.FormatInt(r.ReactionMS, 10), strconv.FormatInt(r.DurationMS, 10),
			strconv.FormatBool(r.Dangerous),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
