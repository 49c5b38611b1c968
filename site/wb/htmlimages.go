package wb

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

const htmlImagesLimit = 10

var (
	basketFrameRe = regexp.MustCompile(`https://basket-\d{2}\.wbbasket\.ru/vol\d+/(?:part\d+/)?\d+/images/(?:big|c516x688|c246x328)/(\d+)\.(?:webp|jpg)`)
	basketBaseRe  = regexp.MustCompile(`(https://basket-\d{2}\.wbbasket\.ru/vol\d+/(?:part\d+/)?\d+/images/)(?:big|c516x688|c246x328)/1\.(webp|jpg)`)
	frameIndexRe  = regexp.MustCompile(`/images/(?:big|c516x688|c246x328)/(\d+)\.(?:webp|jpg)`)
)

// imagesFromHTML collects basket frame URLs referenced by the page. When a
// frame-1 URL reveals the base, every found frame is rewritten onto the big
// folder with frame 1's extension; otherwise the raw URLs are kept.
// At most ten URLs are returned.
func imagesFromHTML(rawHTML string) []string {
	found := basketFrameRe.FindAllStringSubmatch(rawHTML, -1)
	if len(found) == 0 {
		return nil
	}

	var images []string
	if m := basketBaseRe.FindStringSubmatch(rawHTML); m != nil {
		prefix, ext := m[1], m[2]
		for _, i := range uniqueSortedIndexes(found) {
			images = append(images, fmt.Sprintf("%sbig/%d.%s", prefix, i, ext))
		}
	} else {
		seen := make(map[string]struct{}, len(found))
		for _, f := range found {
			if _, dup := seen[f[0]]; dup {
				continue
			}
			seen[f[0]] = struct{}{}
			images = append(images, f[0])
		}
	}

	if len(images) > htmlImagesLimit {
		images = images[:htmlImagesLimit]
	}
	return images
}

func uniqueSortedIndexes(matches [][]string) []int {
	set := make(map[int]struct{}, len(matches))
	for _, m := range matches {
		if n, err := strconv.Atoi(m[1]); err == nil {
			set[n] = struct{}{}
		}
	}
	idxs := make([]int, 0, len(set))
	for n := range set {
		idxs = append(idxs, n)
	}
	sort.Ints(idxs)
	return idxs
}

// maxFrameIndex returns the highest frame number referenced by the page.
func maxFrameIndex(rawHTML string) int {
	max := 0
	for _, m := range frameIndexRe.FindAllStringSubmatch(rawHTML, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max
}

// legacyImages lays out the pre-basket images.wbstatic.net URLs, at most ten.
func legacyImages(id int64, count int) []string {
	if count > htmlImagesLimit {
		count = htmlImagesLimit
	}
	vol := id / 100000 * 100000
	out := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, fmt.Sprintf("https://images.wbstatic.net/big/new/%d/%d-%d.jpg", vol, id, i))
	}
	return out
}
