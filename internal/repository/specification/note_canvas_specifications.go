package specification

import "gorm.io/gorm"

type ByUserID struct {
	UserID string
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// RecentlyUpdated lists the most recently saved canvases first.
func RecentlyUpdated(limit, offset int) []Specification {
	return []Specification{
		OrderBy{Field: "updated_at", Desc: true},
		Pagination{Limit: limit, Offset: offset},
	}
}
