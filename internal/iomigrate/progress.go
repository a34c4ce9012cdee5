package iomigrate

import (
	"fmt"

	"github.com/cheggaaa/pb/v3"
	"github.com/tmforge/tmmigrate/pkg/entity"
)

// bar wraps a progress bar that can be turned off.
type bar struct {
	pb *pb.ProgressBar
}

// newProgressBar creates a new progress bar with consistent
// settings.
func newProgressBar(
	total int,
	prefix string,
) *pb.ProgressBar {
	bar := pb.Full.Start(total)
	bar.Set("prefix", prefix)
	bar.Set(pb.CleanOnFinish, true)
	return bar
}

func (r *run) newBar(total int, t entity.Type) *bar {
	if !r.m.progress {
		return &bar{}
	}
	return &bar{pb: newProgressBar(total, fmt.Sprintf("%-13s", t))}
}

func (b *bar) add(n int) {
	if b.pb != nil {
		b.pb.Add(n)
	}
}

func (b *bar) finish() {
	if b.pb != nil {
		b.pb.Finish()
	}
}
