package view

import (
	"slices"

	"github.com/Sternrassler/congregation-site/pkg/client"
)

var (
	standardAboutLabels    = []string{"About Us", "Leadership", "The Gospel", "What We Believe", "Constitution"}
	standardResourceLabels = []string{"Sermons", "Blog"}
)

// navFlags derives navbar switches from the document's navItems. Children of
// "About Us" and "Resources" that are not standard entries are listed as
// extra pages.
func navFlags(doc client.Document) map[string]any {
	flags := map[string]bool{
		"showMinistries":   false,
		"showEvents":       false,
		"showLeadership":   false,
		"showGospel":       false,
		"showDoctrine":     false,
		"showConstitution": false,
		"showSermons":      false,
		"hasBlogPosts":     false,
	}
	aboutUsPages := []any{}
	resourcesPages := []any{}

	for _, item := range objects(doc, "navItems") {
		label, _ := item.String("label")

		switch label {
		case "Ministries":
			flags["showMinistries"] = true
		case "Upcoming Events":
			flags["showEvents"] = true
		case "About Us":
			for _, child := range objects(item, "children") {
				childLabel, _ := child.String("label")
				switch childLabel {
				case "Leadership":
					flags["showLeadership"] = true
				case "The Gospel":
					flags["showGospel"] = true
				case "What We Believe":
					flags["showDoctrine"] = true
				case "Constitution":
					flags["showConstitution"] = true
				}
				if !slices.Contains(standardAboutLabels, childLabel) {
					aboutUsPages = append(aboutUsPages, map[string]any(child))
				}
			}
		case "Resources":
			for _, child := range objects(item, "children") {
				childLabel, _ := child.String("label")
				switch childLabel {
				case "Sermons":
					flags["showSermons"] = true
				case "Blog":
					flags["hasBlogPosts"] = true
				}
				if !slices.Contains(standardResourceLabels, childLabel) {
					resourcesPages = append(resourcesPages, map[string]any(child))
				}
			}
		}
	}

	out := make(map[string]any, len(flags)+2)
	for k, v := range flags {
		out[k] = v
	}
	out["aboutUsPages"] = aboutUsPages
	out["resourcesPages"] = resourcesPages
	return out
}

// objects returns the JSON objects in the array at key, skipping anything else.
func objects(doc client.Document, key string) []client.Document {
	raw, ok := doc.Lookup(key)
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	out := make([]client.Document, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, client.Document(obj))
		}
	}
	return out
}
