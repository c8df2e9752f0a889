package glasir

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var offsetRe = regexp.MustCompile(`v=(-?\d+)`)

// ParseOffsets discovers which week offsets the base page can navigate to.
// Each navigation anchor carries an onclick with a "v=N" argument; the
// result is the sorted set of distinct N values.
func ParseOffsets(html string) []int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return []int{}
	}

	seen := make(map[int]bool)
	doc.Find("a[onclick]").Each(func(_ int, a *goquery.Selection) {
		onclick, _ := a.Attr("onclick")
		m := offsetRe.FindStringSubmatch(onclick)
		if m == nil {
			return
		}
		if offset, err := strconv.Atoi(m[1]); err == nil {
			seen[offset] = true
		}
	})

	offsets := make([]int, 0, len(seen))
	for offset := range seen {
		offsets = append(offsets, offset)
	}
	sort.Ints(offsets)
	return offsets
}
