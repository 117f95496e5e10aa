package image

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/rs/zerolog/log"
)

func TemplateString(pattern string, args map[string]interface{}) (string, error) {
	t, err := template.New(pattern).Funcs(sprig.TxtFuncMap()).Parse(pattern)
	if err != nil {
		return "", err
	}

	var output bytes.Buffer
	if err := t.Execute(&output, args); err != nil {
		return "", err
	}

	return output.String(), nil
}

func TemplateMap(source map[string]string, args map[string]interface{}) (map[string]string, error) {
	templated := map[string]string{}

	for key, value := range source {
		templatedKey, err := TemplateString(key, args)
		if err != nil {
			return nil, err
		}
		templatedValue, err := TemplateString(value, args)
		if err != nil {
			return nil, err
		}
		templatedKey = strings.Trim(templatedKey, " \n")
		templatedValue = strings.Trim(templatedValue, " \n")
		templated[templatedKey] = templatedValue
	}

	if len(templated) > 0 {
		log.Trace().Interface("source", source).Interface("templated", templated).Msg("Templating map")
	}

	return templated, nil
}
