package dag

import (
	"context"
	"errors"
	"strings"
)

// LinkFetcher returns the link table of the node at key.
type LinkFetcher interface {
	FetchLinks(ctx context.Context, key Key) ([]Link, error)
}

// Segments splits a request path into lookup segments. One leading "/" is
// dropped; "/" and "" both yield a single empty segment.
func Segments(p string) []string {
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// Descend walks from root along p, one link-table fetch per segment, and
// returns the entry named by the last segment. It performs exactly as many
// fetches as the path has segments when every segment exists.
func Descend(ctx context.Context, f LinkFetcher, root Key, p string) (Link, error) {
	return DescendSegments(ctx, f, root, Segments(p))
}

// DescendSegments is Descend over a path that is already split. Segments
// are matched as given; an empty slice looks up the root index.
func DescendSegments(ctx context.Context, f LinkFetcher, root Key, segments []string) (Link, error) {
	if len(segments) == 0 {
		segments = []string{""}
	}
	queue := segments
	cursor := root

	for depth := 0; ; depth++ {
		if err := ctx.Err(); err != nil {
			return Link{}, err
		}

		links, err := f.FetchLinks(ctx, cursor)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) {
				return Link{}, err
			}
			return Link{}, NewFetchError(cursor, err)
		}

		segment := queue[0]
		queue = queue[1:]

		link, ok := FindLink(links, segment)
		if !ok {
			return Link{}, &NotFoundError{Key: cursor, Segment: lookupName(segment), Depth: depth, Links: links}
		}
		if len(queue) == 0 {
			return link, nil
		}
		cursor = link.Target
	}
}
