package fyne

import (
	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/melodia/res"
)

// showAboutDialog shows the about box with version in its header.
func showAboutDialog(parent fyneapp.Window, version string) {
	header := widget.NewLabelWithStyle(AppName+" "+version, fyneapp.TextAlignCenter, fyneapp.TextStyle{Bold: true})
	body := widget.NewRichTextFromMarkdown(res.AboutContent)
	body.Wrapping = fyneapp.TextWrapWord

	d := dialog.NewCustom("About", "Close", container.NewVBox(header, body), parent)
	d.Resize(fyneapp.NewSize(420, 280))
	d.Show()
}

// showNoticeDialog shows an in-window message for failures the user caused.
func showNoticeDialog(parent fyneapp.Window, title, message string) {
	dialog.ShowInformation(title, message, parent)
}
