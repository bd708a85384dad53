package catalog

import (
	"context"
	"fmt"

	"github.com/syeo66/voidweaver-sub001/internal/model"
)

// ScrobbleClient is the narrow slice of subsonicapi.Client the Submitter
// needs.
type ScrobbleClient interface {
	Scrobble(ctx context.Context, id string, submission bool, timeMs string) error
}

// Submitter adapts a Subsonic client to scrobble.Submitter: it translates
// a ScrobbleRecord into the scrobble endpoint's submission/time parameters.
type Submitter struct {
	client ScrobbleClient
}

// NewSubmitter constructs a Submitter backed by client.
func NewSubmitter(client ScrobbleClient) *Submitter {
	return &Submitter{client: client}
}

// Submit delivers record to the server: submission=false for NowPlaying,
// submission=true (with a played_at millisecond epoch) for Submission.
func (s *Submitter) Submit(ctx context.Context, record model.ScrobbleRecord) error {
	submission := record.Kind == model.Submission
	timeMs := ""
	if submission && record.PlayedAt != nil {
		timeMs = fmt.Sprintf("%d", record.PlayedAt.UnixMilli())
	}
	if err := s.client.Scrobble(ctx, record.TrackID, submission, timeMs); err != nil {
		return fmt.Errorf("catalog: scrobble %s: %w", record.TrackID, err)
	}
	return nil
}
