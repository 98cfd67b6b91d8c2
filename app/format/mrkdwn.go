package format

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/russross/blackfriday/v2"
)

const Divider = "──────────────────────────────"

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

var markdownExtensions = blackfriday.CommonExtensions &^ blackfriday.HeadingIDs &^ blackfriday.DefinitionLists

// ToMrkdwn converts standard markdown, as produced by language models, into
// Slack mrkdwn.
func ToMrkdwn(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	parser := blackfriday.New(blackfriday.WithExtensions(markdownExtensions))
	root := parser.Parse([]byte(strings.ReplaceAll(markdown, "\r\n", "\n")))

	r := &mrkdwnRenderer{}
	root.Walk(r.visit)

	return strings.TrimSpace(r.buf.String())
}

type mrkdwnRenderer struct {
	buf bytes.Buffer
}

func (r *mrkdwnRenderer) ensureNewline() {
	if r.buf.Len() > 0 && !bytes.HasSuffix(r.buf.Bytes(), []byte("\n")) {
		r.buf.WriteByte('\n')
	}
}

func listDepth(node *blackfriday.Node) int {
	depth := 0
	for p := node.Parent; p != nil; p = p.Parent {
		if p.Type == blackfriday.List {
			depth++
		}
	}
	return depth
}

func itemMarker(item *blackfriday.Node) string {
	if item.ListFlags&blackfriday.ListTypeOrdered == 0 {
		return "•"
	}
	index := 1
	for sibling := item.Prev; sibling != nil; sibling = sibling.Prev {
		index++
	}
	return strconv.Itoa(index) + "."
}

func inBlockQuote(node *blackfriday.Node) bool {
	for p := node.Parent; p != nil; p = p.Parent {
		if p.Type == blackfriday.BlockQuote {
			return true
		}
	}
	return false
}

func (r *mrkdwnRenderer) visit(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	switch node.Type {
	case blackfriday.Heading:
		r.buf.WriteByte('*')

	case blackfriday.Strong:
		r.buf.WriteByte('*')

	case blackfriday.Emph:
		r.buf.WriteByte('_')

	case blackfriday.Del:
		r.buf.WriteByte('~')

	case blackfriday.Text:
		r.buf.WriteString(mrkdwnEscaper.Replace(string(node.Literal)))

	case blackfriday.Code:
		r.buf.WriteString("`" + string(node.Literal) + "`")

	case blackfriday.HTMLSpan, blackfriday.HTMLBlock:
		r.buf.Write(node.Literal)

	case blackfriday.CodeBlock:
		r.buf.WriteString("```\n")
		r.buf.Write(node.Literal)
		r.ensureNewline()
		r.buf.WriteString("```")

	case blackfriday.HorizontalRule:
		r.buf.WriteString(Divider)

	case blackfriday.Softbreak, blackfriday.Hardbreak:
		r.buf.WriteByte('\n')
		if inBlockQuote(node) {
			r.buf.WriteString("> ")
		}

	case blackfriday.BlockQuote:
		if entering {
			r.buf.WriteString("> ")
		}

	case blackfriday.Link:
		if !entering {
			r.buf.WriteByte('>')
			break
		}
		dest := string(node.LinkData.Destination)
		if child := node.FirstChild; child != nil && child.Next == nil && child.Type == blackfriday.Text && string(child.Literal) == dest {
			r.buf.WriteString("<" + dest + ">")
			return blackfriday.SkipChildren
		}
		r.buf.WriteString("<" + dest + "|")

	case blackfriday.Image:
		if entering {
			r.buf.WriteString("<" + string(node.LinkData.Destination) + ">")
		}
		return blackfriday.SkipChildren

	case blackfriday.Item:
		if entering {
			r.ensureNewline()
			r.buf.WriteString(strings.Repeat("  ", listDepth(node)-1) + itemMarker(node) + " ")
		}

	case blackfriday.Paragraph:
		if entering && node.Parent != nil && node.Parent.Type == blackfriday.Item && node.Prev != nil {
			r.buf.WriteByte('\n')
		}

	case blackfriday.TableCell:
		if entering && node.Prev != nil {
			r.buf.WriteString(" | ")
		}

	case blackfriday.TableRow:
		if !entering {
			r.buf.WriteByte('\n')
		}
	}

	// Leaf blocks are visited once, on entering.
	if (!entering || !node.IsContainer()) && node.Parent != nil && node.Parent.Type == blackfriday.Document {
		r.buf.WriteString("\n\n")
	}

	return blackfriday.GoToNext
}
