package models

// DefaultTitle is used when no strategy produced a title.
const DefaultTitle = "Товар"

// ProductRecord is the canonical product card returned by an extraction.
// Downstream consumers treat Images[0] as the cover and download images in
// list order.
type ProductRecord struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Rating      *string  `json:"rating"`
	Reviews     *int     `json:"reviews"`
	Price       *int     `json:"price"` // whole roubles
	Images      []string `json:"images"`
	Videos      []string `json:"videos"`
	Source      Site     `json:"source"`
}

// Clone returns a deep copy so a cached record can be handed out safely.
func (r *ProductRecord) Clone() *ProductRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Description = clonePtr(r.Description)
	c.Rating = clonePtr(r.Rating)
	c.Reviews = clonePtr(r.Reviews)
	c.Price = clonePtr(r.Price)
	c.Images = append([]string{}, r.Images...)
	c.Videos = append([]string{}, r.Videos...)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
