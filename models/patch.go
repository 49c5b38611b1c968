package models

import "github.com/use-agent/cardgrab/normalize"

// Patch is the partial result of one extraction strategy. Nil fields mean
// the strategy had nothing to say about them.
type Patch struct {
	Title       *string
	Description *string
	Rating      *string
	Reviews     *int
	Price       *int
	Images      []string
}

// Fold combines patches in order. Scalar fields take the first non-nil
// value; image lists are merged in patch order with duplicates dropped.
func Fold(site Site, patches ...Patch) *ProductRecord {
	rec := &ProductRecord{Source: site}
	var title *string
	var images [][]string
	for _, p := range patches {
		title = firstNonNil(title, p.Title)
		rec.Description = firstNonNil(rec.Description, p.Description)
		rec.Rating = firstNonNil(rec.Rating, p.Rating)
		rec.Reviews = firstNonNil(rec.Reviews, p.Reviews)
		rec.Price = firstNonNil(rec.Price, p.Price)
		images = append(images, p.Images)
	}

	rec.Title = DefaultTitle
	if title != nil && *title != "" {
		rec.Title = *title
	}
	rec.Images = normalize.MergeURLs(images...)
	rec.Videos = []string{}
	return rec
}

// Merge folds other into p, keeping values p already has.
func (p Patch) Merge(other Patch) Patch {
	return Patch{
		Title:       firstNonNil(p.Title, other.Title),
		Description: firstNonNil(p.Description, other.Description),
		Rating:      firstNonNil(p.Rating, other.Rating),
		Reviews:     firstNonNil(p.Reviews, other.Reviews),
		Price:       firstNonNil(p.Price, other.Price),
		Images:      normalize.MergeURLs(p.Images, other.Images),
	}
}

func firstNonNil[T any](cur, next *T) *T {
	if cur != nil {
		return cur
	}
	return next
}
