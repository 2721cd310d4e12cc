package views

import (
	"strconv"
	"time"
)

type messages struct {
	LoadMore    string
	ReadingTime string // suffix after the minute count
	NotFound    string
	NotFoundMsg string
	ServerError string
	ServerMsg   string
	BackHome    string
	ExitPreview string
	PreviewOn   string
	Months      [12]string
}

var catalog = map[string]messages{
	"pt-BR": {
		LoadMore:    "Carregar mais posts",
		ReadingTime: "min",
		NotFound:    "Página não encontrada",
		NotFoundMsg: "O post que você procura não existe ou foi removido.",
		ServerError: "Algo deu errado",
		ServerMsg:   "Tente novamente em alguns instantes.",
		BackHome:    "Voltar para o início",
		ExitPreview: "Sair do modo preview",
		PreviewOn:   "Modo preview ativo",
		Months:      [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
	},
	"en": {
		LoadMore:    "Load more posts",
		ReadingTime: "min",
		NotFound:    "Page not found",
		NotFoundMsg: "The post you are looking for does not exist or was removed.",
		ServerError: "Something went wrong",
		ServerMsg:   "Please try again in a moment.",
		BackHome:    "Back to home",
		ExitPreview: "Exit preview",
		PreviewOn:   "Preview mode",
		Months:      [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	},
}

// DefaultLocale is used for unknown or empty locales.
const DefaultLocale = "pt-BR"

func msgs(locale string) messages {
	if m, ok := catalog[locale]; ok {
		return m
	}
	return catalog[DefaultLocale]
}

// FormatDate renders t as "dd MMM yyyy" with the locale's month
// abbreviations, e.g. "25 mar 2021". A nil time renders as "".
func FormatDate(t *time.Time, locale string) string {
	if t == nil {
		return ""
	}
	m := msgs(locale)
	day := t.Day()
	d := strconv.Itoa(day)
	if day < 10 {
		d = "0" + d
	}
	return d + " " + m.Months[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// HTMLLang returns the value for the <html lang> attribute.
func HTMLLang(locale string) string {
	if _, ok := catalog[locale]; ok {
		return locale
	}
	return DefaultLocale
}
