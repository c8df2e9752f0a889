package glasir

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// homeworkHeader labels the homework block inside a note response.
const homeworkHeader = "Heimaarbeiði"

var (
	spaceBeforeNewlineRe = regexp.MustCompile(` +\n`)
	spaceAfterNewlineRe  = regexp.MustCompile(`\n +`)
)

// ParseHomework extracts the homework text from one note response as
// Markdown. The result has zero or one entry, keyed by lesson id.
func ParseHomework(page string) map[string]string {
	result := make(map[string]string)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return result
	}

	lessonID := ""
	doc.Find(`input[id^="LektionsID"]`).EachWithBreak(func(_ int, input *goquery.Selection) bool {
		lessonID, _ = input.Attr("value")
		return false
	})
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return result
	}

	var block *goquery.Selection
	doc.Find("b").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		if strings.TrimSpace(b.Text()) == homeworkHeader {
			parent := b.Parent()
			if goquery.NodeName(parent) == "p" {
				block = parent
			}
			return false
		}
		return true
	})
	if block == nil {
		return result
	}

	markdown := renderHomeworkMarkdown(block.Nodes[0])
	markdown = spaceBeforeNewlineRe.ReplaceAllString(markdown, "\n")
	markdown = spaceAfterNewlineRe.ReplaceAllString(markdown, "\n")
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return result
	}

	result[lessonID] = markdown
	return result
}

// renderHomeworkMarkdown converts the homework block to Markdown with two
// top-level suppressions: the header <b> itself and the <br> right after it.
func renderHomeworkMarkdown(block *html.Node) string {
	var b strings.Builder
	droppedHeader := false
	dropNextBr := false

	for node := block.FirstChild; node != nil; node = node.NextSibling {
		if !droppedHeader && node.Type == html.ElementNode && node.Data == "b" &&
			strings.TrimSpace(nodeText(node)) == homeworkHeader {
			droppedHeader = true
			dropNextBr = true
			continue
		}
		if dropNextBr {
			if node.Type == html.ElementNode && node.Data == "br" {
				dropNextBr = false
				continue
			}
			if node.Type == html.TextNode && strings.TrimSpace(node.Data) == "" {
				continue // whitespace between header and its <br>
			}
			dropNextBr = false
		}
		renderNode(&b, node)
	}
	return b.String()
}

// renderNode appends one node's Markdown rendering.
func renderNode(b *strings.Builder, node *html.Node) {
	switch {
	case node.Type == html.TextNode:
		b.WriteString(node.Data)
	case node.Type != html.ElementNode:
		// comments, doctypes: nothing to render
	case node.Data == "br":
		b.WriteString("\n")
	case node.Data == "b":
		b.WriteString("**" + strings.TrimSpace(renderChildren(node)) + "**")
	case node.Data == "i":
		b.WriteString("*" + strings.TrimSpace(renderChildren(node)) + "*")
	default:
		b.WriteString(renderChildren(node))
	}
}

func renderChildren(node *html.Node) string {
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		renderNode(&b, child)
	}
	return b.String()
}
