package tui

import (
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/query"
)

type tabLoadedMsg struct {
	kind  content.Kind
	query func(query.State) view
	err   error
}

type feedErrMsg struct {
	err error
}

type refreshDoneMsg struct {
	counts map[content.Kind]int
	errs   []error
}
