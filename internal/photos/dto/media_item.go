// Package dto converts Photos Library API objects into model types.
package dto

import (
	"time"

	photoslibrary "github.com/nekr0z/gphotoslibrary"

	"github.com/handiism/gphotos-backup/internal/model"
)

// ToDescriptor converts an API media item. fetchedAt stamps the locator's
// issue time.
func ToDescriptor(item *photoslibrary.MediaItem, fetchedAt time.Time) model.MediaDescriptor {
	d := model.MediaDescriptor{
		ID:        item.Id,
		Filename:  item.Filename,
		MimeType:  item.MimeType,
		BaseURL:   item.BaseUrl,
		FetchedAt: fetchedAt,
	}
	if item.MediaMetadata != nil {
		d.CreationTime = item.MediaMetadata.CreationTime
	}
	return d
}

// ToAlbum converts an API album.
func ToAlbum(a *photoslibrary.Album) model.Album {
	return model.Album{
		ID:         a.Id,
		Title:      a.Title,
		ItemsCount: a.MediaItemsCount,
		ProductURL: a.ProductUrl,
	}
}

// ToDate converts the calendar date of t into an API date.
func ToDate(t time.Time) *photoslibrary.Date {
	return &photoslibrary.Date{
		Year:  int64(t.Year()),
		Month: int64(t.Month()),
		Day:   int64(t.Day()),
	}
}

// DateRangeFilter builds a search filter restricted to [start, end].
// Boundary semantics are those of the service's date filter.
func DateRangeFilter(start, end time.Time) *photoslibrary.Filters {
	return &photoslibrary.Filters{
		DateFilter: &photoslibrary.DateFilter{
			Ranges: []*photoslibrary.DateRange{
				{StartDate: ToDate(start), EndDate: ToDate(end)},
			},
		},
	}
}
