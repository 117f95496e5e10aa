package build

import "strconv"

// Result is produced exactly once per successful run and mirrored to
// the CI output channel as string key/values.
type Result struct {
	Image   string
	Tag     string
	Href    string
	Skipped bool
}

// OutputKeys fixes the emission order of the output channel.
var OutputKeys = []string{"image", "tag", "href", "skipped"}

func (r *Result) Outputs() map[string]string {
	return map[string]string{
		"image":   r.Image,
		"tag":     r.Tag,
		"href":    r.Href,
		"skipped": strconv.FormatBool(r.Skipped),
	}
}
