package pages

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

type ErrorPageProps struct {
	Title        string
	ErrorTitle   string
	ErrorMessage string
}

func PublicErrorPage(props ErrorPageProps) templ.Component {
	return publicLayout(props.Title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<h1>%s</h1><p>%s</p>", templ.EscapeString(props.ErrorTitle), templ.EscapeString(props.ErrorMessage))
		return err
	}))
}
