package gdialog

import (
	"path/filepath"
	"strings"

	"github.com/sqweek/dialog"
)

// SavePNG asks for a target file and makes sure it ends in .png.
// dialog.ErrCancelled comes back when the user closes the dialog.
func SavePNG(title, startDir string) (string, error) {
	b := dialog.File().Title(title).Filter("PNG image", "png")
	if startDir != "" {
		b = b.SetStartDir(startDir)
	}
	path, err := b.Save()
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(path), ".png") {
		path += ".png"
	}
	return path, nil
}

func ShowError(title, msg string) {
	dialog.Message("%s", msg).Title(title).Error()
}
