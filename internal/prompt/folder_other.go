//go:build !windows

package prompt

func selectFolder(p *Prompter, title string) (string, error) {
	return p.ReadLine(title + ": ")
}
