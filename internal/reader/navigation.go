package reader

import (
	"sort"

	"github.com/pders01/ranobe/internal/catalog"
)

// ChapterRef is a chapter together with the volume that owns it.
type ChapterRef struct {
	Chapter catalog.ChapterBrief
	Volume  *catalog.Volume
}

type Navigation struct {
	Novel         catalog.NovelDetail
	Current       ChapterRef
	Previous      *ChapterRef
	Next          *ChapterRef
	CurrentVolume *catalog.Volume
	TotalChapters int
	// Index is the zero-based position of the current chapter in reading order.
	Index int
}

// VolumeEntry is one group of the table of contents.
type VolumeEntry struct {
	Volume   catalog.Volume
	Chapters []catalog.ChapterBrief
}

// TableOfContents returns the novel's volumes in reading order, each with its
// chapters in reading order. Ties keep their original relative order.
func TableOfContents(novel catalog.NovelDetail) []VolumeEntry {
	vols := make([]catalog.Volume, len(novel.Volumes))
	copy(vols, novel.Volumes)
	sort.SliceStable(vols, func(i, j int) bool { return vols[i].OrderOrZero() < vols[j].OrderOrZero() })

	out := make([]VolumeEntry, len(vols))
	for i, v := range vols {
		chs := make([]catalog.ChapterBrief, len(v.Chapters))
		copy(chs, v.Chapters)
		sort.SliceStable(chs, func(a, b int) bool { return chs[a].OrderOrZero() < chs[b].OrderOrZero() })
		v.Chapters = chs
		out[i] = VolumeEntry{Volume: v, Chapters: chs}
	}
	return out
}

// Flatten lists every chapter of the novel in reading order.
func Flatten(novel catalog.NovelDetail) []catalog.ChapterBrief {
	var flat []catalog.ChapterBrief
	for _, e := range TableOfContents(novel) {
		flat = append(flat, e.Chapters...)
	}
	return flat
}

// Resolve locates chapterID in the novel and returns its neighbours. It
// returns nil when the chapter is not part of the novel. The input is not
// modified.
func Resolve(novel catalog.NovelDetail, chapterID string) *Navigation {
	toc := TableOfContents(novel)

	var flat []catalog.ChapterBrief
	for _, e := range toc {
		flat = append(flat, e.Chapters...)
	}

	idx := -1
	for i, ch := range flat {
		if ch.ID == chapterID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	volumeByID := func(id string) *catalog.Volume {
		for i := range toc {
			if toc[i].Volume.ID == id {
				v := toc[i].Volume
				return &v
			}
		}
		return nil
	}

	nav := &Navigation{
		Novel:         novel,
		Current:       ChapterRef{Chapter: flat[idx], Volume: volumeByID(flat[idx].VolumeID)},
		TotalChapters: len(flat),
		Index:         idx,
	}
	if idx > 0 {
		prev := flat[idx-1]
		nav.Previous = &ChapterRef{Chapter: prev, Volume: volumeByID(prev.VolumeID)}
	}
	if idx < len(flat)-1 {
		next := flat[idx+1]
		nav.Next = &ChapterRef{Chapter: next, Volume: volumeByID(next.VolumeID)}
	}

	for i := range toc {
		for _, ch := range toc[i].Chapters {
			if ch.ID == chapterID {
				v := toc[i].Volume
				nav.CurrentVolume = &v
				return nav
			}
		}
	}
	return nav
}

// HasPrevious and HasNext are nil-safe so a missed resolution disables both.
func (n *Navigation) HasPrevious() bool { return n != nil && n.Previous != nil }
func (n *Navigation) HasNext() bool     { return n != nil && n.Next != nil }
