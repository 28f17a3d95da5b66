package records

import (
	"fmt"

	"discord-archive/models"
)

// MinFormatVersion is the oldest append-log format this implementation can
// resume from or reconstruct.
const MinFormatVersion = 1

// Plan is the recovered resume state of a prior log.
type Plan struct {
	// Conf is the originating crawl configuration (first run_info wins, so
	// appended continuation runs keep the original scope).
	Conf models.CrawlConf

	// Channels is the resolved venue id list of the first run.
	Channels []int64

	// Watermarks maps venue id to the highest message id seen anywhere in
	// the file. Maximum, not last-in-file: the planner does not assume
	// strictly sequential writes even though this writer produces them.
	Watermarks map[int64]int64

	// Finished reports whether the last run in the file ended cleanly.
	Finished bool

	// Runs counts the run_info records (a file may be appended to by
	// several runs).
	Runs int
}

// ReadPlan streams a prior append log once and reconstructs the per-venue
// watermark set needed to resume without gaps or duplicates.
func ReadPlan(path string) (*Plan, error) {
	plan := &Plan{Watermarks: make(map[int64]int64)}
	first := true
	err := Scan(path, func(rec Record) error {
		if first {
			if rec.Type != models.TypeRunInfo {
				return fmt.Errorf("%w: first record is %q, want run_info", ErrCorruptLog, rec.Type)
			}
			first = false
		}
		switch rec.Type {
		case models.TypeRunInfo:
			var info models.RunInfo
			if err := Unmarshal(rec, &info); err != nil {
				return err
			}
			if info.FormatVersion < MinFormatVersion {
				return fmt.Errorf("%w: log format version %d, minimum supported %d",
					ErrIncompatibleFormat, info.FormatVersion, MinFormatVersion)
			}
			if plan.Runs == 0 {
				plan.Conf = info.Conf
				plan.Channels = info.Channels
			}
			plan.Runs++
			plan.Finished = false
		case models.TypeRunFinished:
			plan.Finished = true
		case models.TypeMessage:
			var m struct {
				ID      int64 `json:"id"`
				Channel int64 `json:"channel"`
			}
			if err := Unmarshal(rec, &m); err != nil {
				return err
			}
			if m.ID > plan.Watermarks[m.Channel] {
				plan.Watermarks[m.Channel] = m.ID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if first {
		return nil, fmt.Errorf("%w: no run_info record found", ErrCorruptLog)
	}
	return plan, nil
}
