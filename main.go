package main

import "github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/cmd"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
