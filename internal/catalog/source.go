package catalog

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

// Source is the remote side of the catalog. Any method may fail.
type Source interface {
	FetchCourses(ctx context.Context, strategy model.ReadingStrategy) ([]model.Course, error)
	FetchSiteColors(ctx context.Context) ([]string, error)
	FetchUserProfile(ctx context.Context, userID int) (model.UserProfile, error)
}

// paletteLoader collapses concurrent palette lookups from overlapping loads
// into a single source call. The shared call is not tied to any one
// caller's cancellation; each caller stops waiting when its own context ends.
type paletteLoader struct {
	group    singleflight.Group
	src      Source
	fallback string
}

func (l *paletteLoader) load(ctx context.Context) Palette {
	p := Palette{Fallback: l.fallback}
	ch := l.group.DoChan("palette", func() (v interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				v, err = nil, fmt.Errorf("site colors: %v", r)
			}
		}()
		return l.src.FetchSiteColors(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		p.Err = ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			p.Err = res.Err
			break
		}
		p.Colors, _ = res.Val.([]string)
	}
	return p
}
