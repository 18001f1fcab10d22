package services

type PageInfo struct {
	TotalPages int   `json:"total_pages"`
	TotalCount int64 `json:"total_count"`
	PageSize   int   `json:"page_size"`
}

// ComputePageInfo reports zero pages for an empty result.
func ComputePageInfo(total int64, pageSize int) PageInfo {
	info := PageInfo{TotalCount: total, PageSize: pageSize}
	if total <= 0 || pageSize <= 0 {
		return info
	}
	size := int64(pageSize)
	info.TotalPages = int((total + size - 1) / size)
	return info
}
