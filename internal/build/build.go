package build

import "strings"

var (
	Version = "dev"
	AppName = "TestSeries"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}
