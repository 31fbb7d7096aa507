// Package view turns content documents into view models.
//
// Transform functions are pure: no network, cache or clock access. Every
// document field is optional and missing fields fall back to defaults.
package view

import (
	"net/http"
	"strings"

	"github.com/Sternrassler/congregation-site/pkg/client"
)

// DefaultTemplate is used when a page document names no template.
const DefaultTemplate = "page"

// ViewModel is what a theme renders.
type ViewModel struct {
	Theme     string         `json:"theme"`
	View      string         `json:"view"`
	Status    int            `json:"status"`
	SiteTitle string         `json:"siteTitle"`
	SiteName  string         `json:"siteName"`
	Data      map[string]any `json:"data"`
}

// Homepage transforms the homepage document.
func Homepage(doc client.Document, defaultTheme string) ViewModel {
	data := baseProps(doc)
	merge(data, map[string]any{
		"heading":        value(doc, "Welcome", "heroTitle"),
		"headerImage":    value(doc, nil, "heroImage"),
		"headerVideo":    value(doc, nil, "heroVideo"),
		"actionLinks":    value(doc, []any{}, "actionLinks"),
		"showEvents":     value(doc, false, "sections", "showEvents"),
		"events":         value(doc, []any{}, "events"),
		"showSermons":    value(doc, false, "sections", "showSermons"),
		"series":         value(doc, []any{}, "sermons", "activeSeries"),
		"showMinistries": value(doc, false, "sections", "showMinistries"),
		"ministries":     value(doc, []any{}, "ministries"),
	})

	return newViewModel(doc, defaultTheme, "home", http.StatusOK, data)
}

// Page transforms a page document requested at path.
func Page(doc client.Document, path, defaultTheme string) ViewModel {
	template, ok := doc.String("_template")
	if !ok || template == "" {
		template = DefaultTemplate
	}

	status := http.StatusOK
	if s, ok := doc.Int("_status"); ok && s >= 100 && s <= 599 {
		status = s
	}

	name, data := transformPage(template, strings.Trim(path, "/"), doc)
	return newViewModel(doc, defaultTheme, name, status, data)
}

// Theme returns the document's theme name or fallback.
func Theme(doc client.Document, fallback string) string {
	if name, ok := doc.String("theme", "name"); ok && name != "" {
		return name
	}
	return fallback
}

func newViewModel(doc client.Document, defaultTheme, name string, status int, data map[string]any) ViewModel {
	siteTitle, _ := data["siteTitle"].(string)
	siteName, _ := data["siteName"].(string)
	return ViewModel{
		Theme:     Theme(doc, defaultTheme),
		View:      name,
		Status:    status,
		SiteTitle: siteTitle,
		SiteName:  siteName,
		Data:      data,
	}
}

// transformPage resolves the view name for template and builds its data.
func transformPage(template, path string, doc client.Document) (string, map[string]any) {
	switch template {
	case "about":
		return "about", about(doc)
	case "leadership":
		return "leadership", leadership(doc)
	case "content-page":
		return contentPage(path, doc)
	case "ministry-detail":
		return "ministry", withProps(doc, map[string]any{
			"siteTitle":          value(doc, "Ministry", "siteTitle"),
			"ministryTitle":      value(doc, "Ministry", "pageTitle"),
			"ministryImage":      value(doc, nil, "image"),
			"ministryWhereMeets": value(doc, nil, "whereMeets"),
			"ministryContent":    value(doc, "", "content"),
		})
	case "blog-post":
		return "blog-post", withProps(doc, map[string]any{
			"siteTitle":          value(doc, "Blog Post", "siteTitle"),
			"blogPostTitle":      value(doc, "Blog Post", "pageTitle"),
			"blogPostImage":      value(doc, nil, "image"),
			"blogPostAuthorName": value(doc, nil, "author"),
			"blogPostContent":    value(doc, "", "pageContent"),
		})
	case "contact":
		return "location", withProps(doc, map[string]any{
			"siteTitle": value(doc, "Contact", "siteTitle"),
		})
	default:
		return "custom-page", withProps(doc, map[string]any{
			"siteTitle":         value(doc, "Page", "siteTitle"),
			"customPageTitle":   value(doc, "Page", "pageTitle"),
			"customPageImage":   firstValue(doc, nil, []string{"featuredImage"}, []string{"image"}),
			"customPageContent": value(doc, "", "pageContent"),
		})
	}
}

func about(doc client.Document) map[string]any {
	var sections []any
	if raw, ok := doc.Lookup("sections"); ok {
		if list, ok := raw.([]any); ok {
			for _, item := range list {
				section, ok := item.(map[string]any)
				if !ok {
					continue
				}
				out := make(map[string]any, len(section)+1)
				merge(out, section)
				s := client.Document(section)
				out["title"] = firstValue(s, "", []string{"heading"}, []string{"title"})
				sections = append(sections, out)
			}
		}
	}
	if sections == nil {
		sections = []any{}
	}

	return withProps(doc, map[string]any{
		"siteTitle":       value(doc, "About", "siteTitle"),
		"aboutHeading":    value(doc, "About Us", "pageTitle"),
		"aboutSubheading": value(doc, "", "pageSubtitle"),
		"aboutImage":      value(doc, nil, "headerImage"),
		"aboutSections":   sections,
	})
}

func leadership(doc client.Document) map[string]any {
	return withProps(doc, map[string]any{
		"siteTitle":               value(doc, "Leadership", "siteTitle"),
		"seniorLeaders":           value(doc, []any{}, "seniorLeaders"),
		"leadershipSections":      value(doc, []any{}, "leadershipSections"),
		"lookingForPastor":        value(doc, false, "lookingForPastor"),
		"lookingForPastorMessage": value(doc, nil, "lookingForPastorMessage"),
	})
}

// contentPagePrefixes maps path prefixes of generic content pages to views.
var contentPagePrefixes = []struct {
	prefix string
	view   string
}{
	{"gospel", "gospel"},
	{"doctrine", "doctrine"},
	{"beliefs", "doctrine"},
	{"statement-of-faith", "doctrine"},
	{"constitution", "constitution"},
	{"bylaws", "constitution"},
}

func contentPage(path string, doc client.Document) (string, map[string]any) {
	title, _ := value(doc, "", "pageTitle").(string)
	content := value(doc, "", "pageContent")
	siteTitle := value(doc, title, "siteTitle")

	for _, p := range contentPagePrefixes {
		if strings.HasPrefix(path, p.prefix) {
			return p.view, withProps(doc, map[string]any{
				"siteTitle":        siteTitle,
				p.view + "Heading": title,
				p.view + "Content": content,
			})
		}
	}

	return "custom-page", withProps(doc, map[string]any{
		"siteTitle":         siteTitle,
		"customPageTitle":   title,
		"customPageContent": content,
	})
}

func withProps(doc client.Document, props map[string]any) map[string]any {
	data := baseProps(doc)
	merge(data, props)
	return data
}

// baseProps builds the fields shared by every page: site identity, footer
// and navigation flags.
func baseProps(doc client.Document) map[string]any {
	siteName := value(doc, "Your Church", "siteName")
	schedule := firstValue(doc, []any{},
		[]string{"footer", "serviceSchedule", "sections"},
		[]string{"footer", "serviceSchedule"})
	mapURL := firstValue(doc, nil, []string{"mapUrl"}, []string{"footer", "contact", "mapUrl"})

	data := map[string]any{
		"siteName":         siteName,
		"siteTitle":        value(doc, siteName, "siteTitle"),
		"navLogo":          value(doc, nil, "navLogo"),
		"footerAbout":      value(doc, "", "footer", "about"),
		"churchAddress":    value(doc, nil, "footer", "contact", "address"),
		"mailingAddress":   value(doc, nil, "footer", "contact", "mailingAddress"),
		"churchPhone":      value(doc, nil, "footer", "contact", "phone"),
		"churchEmail":      value(doc, nil, "footer", "contact", "email"),
		"mapUrl":           mapURL,
		"scheduleSections": schedule,
		"facebookUrl":      value(doc, nil, "footer", "social", "facebook"),
		"youtubeUrl":       value(doc, nil, "footer", "social", "youtube"),
		"instagramUrl":     value(doc, nil, "footer", "social", "instagram"),
	}

	merge(data, navFlags(doc))
	return data
}

func value(doc client.Document, def any, path ...string) any {
	if v, ok := doc.Lookup(path...); ok {
		return v
	}
	return def
}

func firstValue(doc client.Document, def any, paths ...[]string) any {
	for _, p := range paths {
		if v, ok := doc.Lookup(p...); ok {
			return v
		}
	}
	return def
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
