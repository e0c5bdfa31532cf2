package verify

import (
	"github.com/memvault/memvault/pkg/model"
	"github.com/memvault/memvault/pkg/pairing"
	"github.com/memvault/memvault/pkg/repository"
)

// Item identifies one memory in a report.
type Item struct {
	SID      string
	Date     string
	Attempts int
}

// DownloadReport is the network-free download verification result.
type DownloadReport struct {
	Total      int
	Downloaded int
	Missing    []Item // never attempted
	Failed     []Item // attempted and recorded as failed
}

// CompositeReport is the composite verification result.
type CompositeReport struct {
	TotalPairs       int
	CompositedImages int
	CompositedVideos int
	Missing          []Item // paired but never attempted
	Failed           []Item
	UnpairedOverlays int
}

// UseCase reads the ledger; it never performs network activity.
type UseCase struct {
	ledger repository.Ledger
}

// New creates the verifier.
func New(ledger repository.Ledger) *UseCase {
	return &UseCase{ledger: ledger}
}

// Downloads classifies every parsed memory as downloaded, failed, or
// missing according to the ledger.
func (u *UseCase) Downloads(memories []*model.Memory) *DownloadReport {
	r := &DownloadReport{Total: len(memories)}
	for _, m := range memories {
		date := model.FormatCaptureTime(m.CapturedAt)
		switch {
		case u.ledger.IsDownloaded(m.ID):
			r.Downloaded++
		case u.ledger.FailureCount(m.ID) > 0:
			r.Failed = append(r.Failed, Item{
				SID:      m.ID.Short(),
				Date:     date,
				Attempts: u.ledger.FailureCount(m.ID),
			})
		default:
			r.Missing = append(r.Missing, Item{SID: m.ID.Short(), Date: date})
		}
	}
	return r
}

// Composites classifies every pair as composited, failed, or missing.
func (u *UseCase) Composites(cache *pairing.Cache) *CompositeReport {
	r := &CompositeReport{
		TotalPairs:       len(cache.Paired()),
		UnpairedOverlays: len(cache.Unpaired()),
	}
	for _, p := range cache.Paired() {
		if u.ledger.IsComposited(p.SID8, p.MediaType) {
			if p.MediaType == model.KindVideo {
				r.CompositedVideos++
			} else {
				r.CompositedImages++
			}
			continue
		}
		if n := u.ledger.CompositeFailureCount(p.SID8, p.MediaType); n > 0 {
			r.Failed = append(r.Failed, Item{SID: p.SID8, Attempts: n})
			continue
		}
		r.Missing = append(r.Missing, Item{SID: p.SID8})
	}
	return r
}
