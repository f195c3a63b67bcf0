package appstore

import (
	"encoding/json"

	"github.com/utafrali/storescope/internal/normalize"
)

// rssFeed is the envelope of the iTunes RSS JSON feeds (collections and
// customer reviews).
type rssFeed struct {
	Feed struct {
		Entry entryList `json:"entry"`
	} `json:"feed"`
}

// entryList tolerates the feed quirk where a single entry is encoded as an
// object instead of a one-element array.
type entryList []map[string]any

func (e *entryList) UnmarshalJSON(data []byte) error {
	var list []map[string]any
	if err := json.Unmarshal(data, &list); err == nil {
		*e = list
		return nil
	}
	var single map[string]any
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*e = entryList{single}
	return nil
}

// label extracts the "label" string of an RSS value object.
func label(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj["label"].(string)
	return s
}

// attr extracts a string attribute of an RSS value object.
func attr(v any, name string) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	attrs, ok := obj["attributes"].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := attrs[name].(string)
	return s
}

// linkHref resolves the href of an entry's link, which the feed encodes
// either as one object or as a list of alternates.
func linkHref(v any) string {
	switch link := v.(type) {
	case map[string]any:
		return attr(link, "href")
	case []any:
		for _, item := range link {
			if href := attr(item, "href"); href != "" {
				return href
			}
		}
	}
	return ""
}

// reviewEntryToRaw flattens an RSS review entry into the key set the review
// normalizer expects.
func reviewEntryToRaw(entry map[string]any) normalize.Raw {
	raw := normalize.Raw{
		"id":      label(entry["id"]),
		"title":   label(entry["title"]),
		"text":    label(entry["content"]),
		"score":   label(entry["im:rating"]),
		"version": label(entry["im:version"]),
		"updated": label(entry["updated"]),
		"url":     linkHref(entry["link"]),
	}
	if author, ok := entry["author"].(map[string]any); ok {
		raw["userName"] = label(author["name"])
		raw["userUrl"] = label(author["uri"])
	}
	return raw
}

// isReviewEntry filters out non-review feed entries (the feed occasionally
// includes the app record itself, which carries no rating).
func isReviewEntry(entry map[string]any) bool {
	_, ok := entry["im:rating"]
	return ok
}

// collectionEntryToRaw flattens an RSS chart entry into the key set the app
// normalizer expects.
func collectionEntryToRaw(entry map[string]any) normalize.Raw {
	raw := normalize.Raw{
		"id":           attr(entry["id"], "im:id"),
		"title":        label(entry["im:name"]),
		"developer":    label(entry["im:artist"]),
		"developerUrl": attr(entry["im:artist"], "href"),
		"url":          linkHref(entry["link"]),
		"description":  label(entry["summary"]),
		"price":        attr(entry["im:price"], "amount"),
		"currency":     attr(entry["im:price"], "currency"),
		"genre":        attr(entry["category"], "label"),
		"genreId":      attr(entry["category"], "im:id"),
		"released":     label(entry["im:releaseDate"]),
	}
	// The image list is ordered smallest to largest; take the largest.
	if images, ok := entry["im:image"].([]any); ok && len(images) > 0 {
		raw["icon"] = label(images[len(images)-1])
	}
	return raw
}
