package schedule

import (
	"context"

	"github.com/trezcool/cronograma/core/week"
)

// WeekCache stores built week views per owner, generation and week.
// Implementations must treat a miss and a failure alike: GetWeek returns false.
//
// A view is stored under the generation read before its data was queried,
// so a view built concurrently with a write is never served after that write.
type WeekCache interface {
	// Generation returns the owner's current cache generation.
	Generation(ctx context.Context, ownerID string) int64
	GetWeek(ctx context.Context, ownerID string, gen int64, monday week.Date, today week.Date) (WeekView, bool)
	SetWeek(ctx context.Context, ownerID string, gen int64, view WeekView)
	// InvalidateOwner moves the owner to a new generation and drops its cached weeks.
	InvalidateOwner(ctx context.Context, ownerID string)
}

// NopCache never stores anything.
type NopCache struct{}

var _ WeekCache = NopCache{}

func (NopCache) Generation(context.Context, string) int64 { return 0 }
func (NopCache) GetWeek(context.Context, string, int64, week.Date, week.Date) (WeekView, bool) {
	return WeekView{}, false
}
func (NopCache) SetWeek(context.Context, string, int64, WeekView) {}
func (NopCache) InvalidateOwner(context.Context, string)          {}
