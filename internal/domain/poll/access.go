package poll

// Visibility rules. A viewerID of 0 means the caller is anonymous.
// There is no sharing/ACL beyond public-vs-creator-only, and callers who
// fail CanView are answered as if the poll did not exist.

func CanView(p *Poll, viewerID int64) bool {
	return p.IsPublic || (viewerID != 0 && p.CreatorID == viewerID)
}

func CanVote(p *Poll, viewerID int64) bool {
	return CanView(p, viewerID)
}

func CanModify(p *Poll, viewerID int64) bool {
	return viewerID != 0 && p.CreatorID == viewerID
}
