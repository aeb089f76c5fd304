// Package sharing builds and parses the DAV property exchange behind a
// calendar rights query: a PROPFIND asking for the sharing invite and the
// access control list, and the multistatus document answering it.
package sharing

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/samber/mo"
)

// Sharee is one entry of the sharing invite: the principal the grant was
// issued to, the address it was sent to, and the granted access level.
type Sharee struct {
	Principal string // e.g. principals/users/<id>
	Href      string // e.g. mailto:user@example.com
	Access    string // read, read-write, admin or free-busy
}

// Email strips the mailto scheme off the sharee's href.
func (s Sharee) Email() string {
	return strings.TrimPrefix(s.Href, "mailto:")
}

// Rights is the parsed rights document of one calendar.
type Rights struct {
	// Public is the visibility granted to authenticated users at large:
	// "", "read", "read-write" or "free-busy".
	Public  string
	Sharees []Sharee
}

// RequestBody returns the PROPFIND body asking for the sharing invite and the
// access control list.
func RequestBody() []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	propfind := doc.CreateElement("D:propfind")
	propfind.CreateAttr("xmlns:D", "DAV:")
	propfind.CreateAttr("xmlns:CS", "http://calendarserver.org/ns/")
	prop := propfind.CreateElement("D:prop")
	prop.CreateElement("CS:invite")
	prop.CreateElement("D:acl")
	out, err := doc.WriteToBytes()
	if err != nil {
		// etree only fails on writer errors, which a byte buffer never raises
		panic(err)
	}
	return out
}

// firstChildText returns the text of the first descendant with the given
// local name, prefix-independent.
func firstChildText(parent *etree.Element, tag string) string {
	for _, el := range descendants(parent, tag) {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

// descendants collects every descendant element with the given local name,
// ignoring namespace prefixes since servers choose their own.
func descendants(parent *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			out = append(out, child)
		}
		out = append(out, descendants(child, tag)...)
	}
	return out
}

// accessOf maps the invite entry's access element to its level name: the
// element wraps a single empty child named after the level.
func accessOf(user *etree.Element) string {
	for _, access := range descendants(user, "access") {
		for _, level := range access.ChildElements() {
			return level.Tag
		}
	}
	return ""
}

// publicRightOf derives the public visibility from the ACL: an ACE granting a
// privilege to the authenticated principal.
func publicRightOf(root *etree.Element) string {
	for _, ace := range descendants(root, "ace") {
		authenticated := false
		for _, principal := range descendants(ace, "principal") {
			if len(descendants(principal, "authenticated")) > 0 {
				authenticated = true
			}
		}
		if !authenticated {
			continue
		}
		for _, grant := range descendants(ace, "grant") {
			for _, privilege := range descendants(grant, "privilege") {
				for _, granted := range privilege.ChildElements() {
					switch granted.Tag {
					case "write":
						return "read-write"
					case "read":
						return "read"
					case "read-free-busy":
						return "free-busy"
					}
				}
			}
		}
	}
	return ""
}

// ParseRights parses the multistatus rights document: invite entries become
// sharees, the ACL's authenticated grants become the public right.
func ParseRights(body []byte) mo.Result[Rights] {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return mo.Err[Rights](fmt.Errorf("failed to parse rights document: %w", err))
	}
	root := doc.Root()
	if root == nil {
		return mo.Err[Rights](fmt.Errorf("empty rights document"))
	}

	rights := Rights{Public: publicRightOf(root)}
	for _, invite := range descendants(root, "invite") {
		for _, user := range descendants(invite, "user") {
			sharee := Sharee{
				Principal: firstChildText(user, "principal"),
				Access:    accessOf(user),
			}
			// the principal may be carried as a d:href when the
			// server has no principal element for the entry
			if sharee.Principal == "" {
				sharee.Principal = firstChildText(user, "href")
			}
			for _, href := range descendants(user, "href") {
				text := strings.TrimSpace(href.Text())
				if strings.HasPrefix(text, "mailto:") {
					sharee.Href = text
					break
				}
			}
			rights.Sharees = append(rights.Sharees, sharee)
		}
	}
	return mo.Ok(rights)
}
