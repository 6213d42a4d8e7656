package domain

import (
	"context"
	"fmt"
)

// ListingKind enumerates the catalog listing views the service exposes.
// Keeping this a closed enum makes strategy and cache-key dispatch
// exhaustive instead of string-matched.
type ListingKind int

const (
	ListingTrending ListingKind = iota
	ListingPopular
	ListingAiring
	ListingUpcoming
	ListingTopRated
	ListingAllTimePopular
)

var listingKindNames = map[ListingKind]string{
	ListingTrending:       "trending",
	ListingPopular:        "popular",
	ListingAiring:         "airing",
	ListingUpcoming:       "upcoming",
	ListingTopRated:       "top-rated",
	ListingAllTimePopular: "all-time-popular",
}

// String returns the wire name of the listing kind, as used in URLs and
// cache keys.
func (k ListingKind) String() string {
	if name, ok := listingKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("listing(%d)", int(k))
}

// ParseListingKind maps a wire name back to its ListingKind.
func ParseListingKind(name string) (ListingKind, error) {
	for k, n := range listingKindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown listing kind %q", name)
}

// ListingQuery identifies one paginated catalog view.
type ListingQuery struct {
	Kind    ListingKind
	Page    int
	PerPage int
}

// CatalogClient is the upstream catalog collaborator. Implementations issue
// requests to the remote service; failures are network errors or non-success
// statuses, never partial results.
type CatalogClient interface {
	// Listing fetches one page of the given listing view.
	Listing(ctx context.Context, q ListingQuery) (*CatalogPage, error)

	// Search fetches one page of titles matching the search term.
	Search(ctx context.Context, term string, page, perPage int) (*CatalogPage, error)

	// Detail fetches a single title by its upstream ID, including relations.
	Detail(ctx context.Context, id int) (*AnimeMedia, error)
}
