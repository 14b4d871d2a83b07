// Package lexicon defines the blue.2048 record shapes exchanged with an
// AT repository, and the coercion of loosely-typed JSON payloads back into
// them. Remote records arrive as generic JSON objects; parsing is explicit
// and fallible rather than a blind unmarshal, so malformed records surface
// as INVALID_RECORD_SHAPE instead of zero values.
package lexicon

import (
	"fmt"
	"math"
	"time"

	apperrors "github.com/louisbranch/blue2048/internal/platform/errors"
	"github.com/louisbranch/blue2048/internal/storage"
)

// Collection NSIDs for blue.2048 records.
const (
	CollectionGame        = "blue.2048.game"
	CollectionPlayerStats = "blue.2048.player.stats"
)

// StatsRecordKey is the fixed record key of the singleton stats record.
const StatsRecordKey = "self"

// SyncStatus mirrors blue.2048.defs#syncStatus.
type SyncStatus struct {
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	SyncedWithAtRepo bool      `json:"syncedWithAtRepo"`
	Hash             string    `json:"hash"`
}

// GameRecord is the wire shape of a blue.2048.game record.
type GameRecord struct {
	Type            string     `json:"$type"`
	SeededRecording string     `json:"seededRecording"`
	Completed       bool       `json:"completed"`
	Won             bool       `json:"won"`
	CurrentScore    int64      `json:"currentScore"`
	CreatedAt       time.Time  `json:"createdAt"`
	SyncStatus      SyncStatus `json:"syncStatus"`
}

// PlayerStats is the wire shape of a blue.2048.player.stats record.
type PlayerStats struct {
	Type                             string     `json:"$type"`
	GamesPlayed                      int64      `json:"gamesPlayed"`
	TotalScore                       int64      `json:"totalScore"`
	AverageScore                     int64      `json:"averageScore"`
	HighestScore                     int64      `json:"highestScore"`
	HighestNumberBlock               int64      `json:"highestNumberBlock"`
	TimesTwentyFortyEightBeenFound   int64      `json:"timesTwentyFortyEightBeenFound"`
	LeastMovesToFindTwentyFortyEight int64      `json:"leastMovesToFindTwentyFortyEight"`
	SyncStatus                       SyncStatus `json:"syncStatus"`
}

// FromStorageGame converts a stored game record into its wire shape.
func FromStorageGame(rec storage.GameRecord) GameRecord {
	return GameRecord{
		Type:            CollectionGame,
		SeededRecording: rec.SeededRecording,
		Completed:       rec.Completed,
		Won:             rec.Won,
		CurrentScore:    rec.CurrentScore,
		CreatedAt:       rec.CreatedAt,
		SyncStatus:      fromStorageSyncStatus(rec.SyncStatus),
	}
}

// ToStorageGame converts a wire game record into its stored shape. The
// record key is assigned by the caller.
func (g GameRecord) ToStorageGame(key string) storage.GameRecord {
	return storage.GameRecord{
		Key:             key,
		SeededRecording: g.SeededRecording,
		Completed:       g.Completed,
		Won:             g.Won,
		CurrentScore:    g.CurrentScore,
		CreatedAt:       g.CreatedAt,
		SyncStatus:      toStorageSyncStatus(g.SyncStatus),
	}
}

// FromStoragePlayerStats converts stored player stats into their wire shape.
func FromStoragePlayerStats(stats storage.PlayerStats) PlayerStats {
	return PlayerStats{
		Type:                             CollectionPlayerStats,
		GamesPlayed:                      stats.GamesPlayed,
		TotalScore:                       stats.TotalScore,
		AverageScore:                     stats.AverageScore,
		HighestScore:                     stats.HighestScore,
		HighestNumberBlock:               stats.HighestNumberBlock,
		TimesTwentyFortyEightBeenFound:   stats.TimesTwentyFortyEightBeenFound,
		LeastMovesToFindTwentyFortyEight: stats.LeastMovesToFindTwentyFortyEight,
		SyncStatus:                       fromStorageSyncStatus(stats.SyncStatus),
	}
}

// ToStoragePlayerStats converts wire player stats into their stored shape.
func (p PlayerStats) ToStoragePlayerStats() storage.PlayerStats {
	return storage.PlayerStats{
		GamesPlayed:                      p.GamesPlayed,
		TotalScore:                       p.TotalScore,
		AverageScore:                     p.AverageScore,
		HighestScore:                     p.HighestScore,
		HighestNumberBlock:               p.HighestNumberBlock,
		TimesTwentyFortyEightBeenFound:   p.TimesTwentyFortyEightBeenFound,
		LeastMovesToFindTwentyFortyEight: p.LeastMovesToFindTwentyFortyEight,
		SyncStatus:                       toStorageSyncStatus(p.SyncStatus),
	}
}

func fromStorageSyncStatus(s storage.SyncStatus) SyncStatus {
	return SyncStatus{
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		SyncedWithAtRepo: s.SyncedWithAtRepo,
		Hash:             s.Hash,
	}
}

func toStorageSyncStatus(s SyncStatus) storage.SyncStatus {
	return storage.SyncStatus{
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		SyncedWithAtRepo: s.SyncedWithAtRepo,
		Hash:             s.Hash,
	}
}

// ParseGameRecord coerces a generic JSON object into a GameRecord.
func ParseGameRecord(value map[string]any) (GameRecord, error) {
	if err := checkType(value, CollectionGame); err != nil {
		return GameRecord{}, err
	}

	var (
		rec  GameRecord
		errs coercion
	)
	rec.Type = CollectionGame
	rec.SeededRecording = errs.stringField(value, "seededRecording")
	rec.Completed = errs.boolField(value, "completed")
	rec.Won = errs.boolField(value, "won")
	rec.CurrentScore = errs.intField(value, "currentScore")
	rec.CreatedAt = errs.timeField(value, "createdAt")
	rec.SyncStatus = errs.syncStatusField(value)
	if errs.err != nil {
		return GameRecord{}, invalidShape(CollectionGame, errs.err)
	}
	return rec, nil
}

// ParsePlayerStats coerces a generic JSON object into a PlayerStats record.
func ParsePlayerStats(value map[string]any) (PlayerStats, error) {
	if err := checkType(value, CollectionPlayerStats); err != nil {
		return PlayerStats{}, err
	}

	var (
		stats PlayerStats
		errs  coercion
	)
	stats.Type = CollectionPlayerStats
	stats.GamesPlayed = errs.intField(value, "gamesPlayed")
	stats.TotalScore = errs.intField(value, "totalScore")
	stats.AverageScore = errs.intField(value, "averageScore")
	stats.HighestScore = errs.intField(value, "highestScore")
	stats.HighestNumberBlock = errs.intField(value, "highestNumberBlock")
	stats.TimesTwentyFortyEightBeenFound = errs.intField(value, "timesTwentyFortyEightBeenFound")
	stats.LeastMovesToFindTwentyFortyEight = errs.intField(value, "leastMovesToFindTwentyFortyEight")
	stats.SyncStatus = errs.syncStatusField(value)
	if errs.err != nil {
		return PlayerStats{}, invalidShape(CollectionPlayerStats, errs.err)
	}
	return stats, nil
}

func checkType(value map[string]any, want string) error {
	if value == nil {
		return invalidShape(want, fmt.Errorf("record is empty"))
	}
	typ, ok := value["$type"].(string)
	if !ok || typ == "" {
		// Some PDS implementations omit $type on getRecord responses;
		// the collection already scoped the fetch, so accept it.
		return nil
	}
	if typ != want {
		return invalidShape(want, fmt.Errorf("unexpected $type %q", typ))
	}
	return nil
}

func invalidShape(collection string, cause error) error {
	return apperrors.Wrap(apperrors.CodeInvalidRecordShape,
		fmt.Sprintf("malformed %s record", collection), cause)
}

// coercion accumulates the first field error while extracting typed values
// from a generic JSON object.
type coercion struct {
	err error
}

func (c *coercion) fail(field string, got any) {
	if c.err == nil {
		c.err = fmt.Errorf("field %q has unexpected value %v (%T)", field, got, got)
	}
}

func (c *coercion) stringField(value map[string]any, field string) string {
	s, ok := value[field].(string)
	if !ok {
		c.fail(field, value[field])
		return ""
	}
	return s
}

func (c *coercion) boolField(value map[string]any, field string) bool {
	b, ok := value[field].(bool)
	if !ok {
		c.fail(field, value[field])
		return false
	}
	return b
}

func (c *coercion) intField(value map[string]any, field string) int64 {
	switch v := value[field].(type) {
	case float64:
		if v != math.Trunc(v) {
			c.fail(field, v)
			return 0
		}
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		c.fail(field, value[field])
		return 0
	}
}

func (c *coercion) timeField(value map[string]any, field string) time.Time {
	s, ok := value[field].(string)
	if !ok {
		c.fail(field, value[field])
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		c.fail(field, s)
		return time.Time{}
	}
	return t
}

func (c *coercion) syncStatusField(value map[string]any) SyncStatus {
	raw, ok := value["syncStatus"].(map[string]any)
	if !ok {
		c.fail("syncStatus", value["syncStatus"])
		return SyncStatus{}
	}
	return SyncStatus{
		CreatedAt:        c.timeField(raw, "createdAt"),
		UpdatedAt:        c.timeField(raw, "updatedAt"),
		SyncedWithAtRepo: c.boolField(raw, "syncedWithAtRepo"),
		Hash:             c.stringField(raw, "hash"),
	}
}
