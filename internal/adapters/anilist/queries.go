package anilist

import (
	"fmt"

	"github.com/aniview/aniview/internal/domain"
)

// mediaFields is the field selection shared by every listing query.
const mediaFields = `
        id
        title {
          english
          romaji
          native
        }
        coverImage {
          large
          medium
        }
        description
        genres
        startDate {
          year
          month
          day
        }
        endDate {
          year
          month
          day
        }
        status
        averageScore
        tags {
          name
        }
        nextAiringEpisode {
          airingAt
          episode
        }
        episodes
        season
        seasonYear`

// listingFilters maps each listing view to its media() arguments. The
// upstream sorts differ per view; upcoming additionally restricts status.
var listingFilters = map[domain.ListingKind]string{
	domain.ListingTrending:       "type: ANIME, sort: TRENDING_DESC, status_not: NOT_YET_RELEASED",
	domain.ListingPopular:        "type: ANIME, sort: POPULARITY_DESC, status_not: NOT_YET_RELEASED",
	domain.ListingAiring:         "type: ANIME, status: RELEASING, sort: POPULARITY_DESC",
	domain.ListingUpcoming:       "type: ANIME, status: NOT_YET_RELEASED, sort: POPULARITY_DESC",
	domain.ListingTopRated:       "type: ANIME, sort: SCORE_DESC",
	domain.ListingAllTimePopular: "type: ANIME, sort: POPULARITY_DESC",
}

func listingQuery(kind domain.ListingKind) string {
	return fmt.Sprintf(`
  query ($page: Int, $perPage: Int) {
    Page(page: $page, perPage: $perPage) {
      pageInfo {
        hasNextPage
        currentPage
      }
      media(%s) {%s
      }
    }
  }`, listingFilters[kind], mediaFields)
}

var searchQuery = fmt.Sprintf(`
  query ($search: String, $page: Int, $perPage: Int) {
    Page(page: $page, perPage: $perPage) {
      pageInfo {
        hasNextPage
        currentPage
      }
      media(type: ANIME, search: $search) {%s
      }
    }
  }`, mediaFields)

var detailQuery = fmt.Sprintf(`
  query ($id: Int) {
    Media(id: $id, type: ANIME) {%s
      relations {
        edges {
          id
          relationType
          node {
            id
            title {
              english
              romaji
            }
            type
            format
            episodes
            coverImage {
              medium
            }
          }
        }
      }
    }
  }`, mediaFields)
