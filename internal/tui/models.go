package tui

type View int

const (
	ViewCatalog View = iota
	ViewReleases
	ViewSearch
	ViewNovel
	ViewReader
	ViewDownloadConfirm
	ViewRemoveConfirm
)

func (v View) String() string {
	switch v {
	case ViewCatalog:
		return "catalog"
	case ViewReleases:
		return "releases"
	case ViewSearch:
		return "search"
	case ViewNovel:
		return "novel"
	case ViewReader:
		return "reader"
	case ViewDownloadConfirm:
		return "download"
	case ViewRemoveConfirm:
		return "remove"
	default:
		return "unknown"
	}
}
