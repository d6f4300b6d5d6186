// Tracktarr - Household media requests driven by watch activity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracktarr

package ledger

import (
	"github.com/tomtom215/tracktarr/internal/media"
	"github.com/tomtom215/tracktarr/internal/models"
)

// Diff is the outcome of comparing the wanted medias of a (user, kind)
// pair with the requests already attributed to it.
type Diff struct {
	// ToAdd are wanted medias without an attributed request, deduplicated
	// by identity in input order.
	ToAdd []media.Info

	// ToRemove are attributed requests that are no longer wanted.
	ToRemove []models.Request

	// Invalid are wanted medias that failed validation. They are neither
	// added nor used to keep existing requests.
	Invalid []media.Info
}

// Empty reports whether applying the diff would change nothing.
func (d Diff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// Plan computes the Diff between existing requests and desired medias.
// Existing requests without a loaded Media are ignored.
func Plan(existing []models.Request, desired []media.Info) Diff {
	var diff Diff

	wanted := make(map[media.Key]struct{}, len(desired))
	valid := make([]media.Info, 0, len(desired))
	for _, info := range desired {
		if err := info.Validate(); err != nil {
			diff.Invalid = append(diff.Invalid, info)
			continue
		}
		key := media.Identify(info)
		if _, dup := wanted[key]; dup {
			continue
		}
		wanted[key] = struct{}{}
		valid = append(valid, info)
	}

	present := make(map[media.Key]struct{}, len(existing))
	for _, req := range existing {
		if req.Media == nil {
			continue
		}
		key := media.Identify(req.Media.Info)
		present[key] = struct{}{}
		if _, ok := wanted[key]; !ok {
			diff.ToRemove = append(diff.ToRemove, req)
		}
	}

	for _, info := range valid {
		if _, ok := present[media.Identify(info)]; !ok {
			diff.ToAdd = append(diff.ToAdd, info)
		}
	}

	return diff
}
