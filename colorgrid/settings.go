package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/colorgrid/pkg/colormap"
	"github.com/itohio/colorgrid/pkg/config"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createGridTab(state),
		createColorsTab(state),
		createAcquisitionTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// applySettings validates cfg, hands it to the coordinator and saves it.
// Settings can only change between sessions.
func applySettings(state *appState, cfg *config.Config) {
	prev := state.coord.Config()
	if err := state.coord.ApplyConfig(cfg); err != nil {
		dialog.ShowError(fmt.Errorf("failed to apply settings: %w", err), state.window)
		return
	}
	state.cfg = cfg

	if prev.Grid != cfg.Grid {
		state.closeCharts()
		state.rebuildGrid()
	} else {
		state.grid.update(state.coord.Grid().Cells())
	}

	// The selected device may depend on the changed settings
	if selected := state.portSelect.Selected; selected != "" {
		handlePortSelected(state, selected)
	}

	if err := cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Serial.ReadTimeout.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Baud Rate", Widget: baudEntry},
			{Text: "Read Timeout", Widget: timeoutEntry},
		},
		OnSubmit: func() {
			cfg := state.coord.Config()
			cfg.Serial.Port = state.cfg.Serial.Port
			err := errors.Join(
				parseInt("baud rate", baudEntry.Text, &cfg.Serial.BaudRate),
				parseDuration("read timeout", timeoutEntry.Text, &cfg.Serial.ReadTimeout),
			)
			if err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			applySettings(state, cfg)
		},
	}

	return container.NewTabItem("Serial", form)
}

// createGridTab creates the Grid and Protocol configuration tab.
func createGridTab(state *appState) *container.TabItem {
	rowsEntry := widget.NewEntry()
	rowsEntry.SetText(strconv.Itoa(state.cfg.Grid.Rows))

	columnsEntry := widget.NewEntry()
	columnsEntry.SetText(strconv.Itoa(state.cfg.Grid.Columns))

	rowDelimEntry := widget.NewEntry()
	rowDelimEntry.SetText(delimiterText(state.cfg.Protocol.RowDelimiter))

	valueDelimEntry := widget.NewEntry()
	valueDelimEntry.SetText(delimiterText(state.cfg.Protocol.ValueDelimiter))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Rows", Widget: rowsEntry},
			{Text: "Columns", Widget: columnsEntry},
			{Text: "Row Delimiter", Widget: rowDelimEntry, HintText: "One character or a byte value such as 0x1e"},
			{Text: "Value Delimiter", Widget: valueDelimEntry},
		},
		OnSubmit: func() {
			cfg := state.coord.Config()
			cfg.Serial.Port = state.cfg.Serial.Port
			err := errors.Join(
				parseInt("rows", rowsEntry.Text, &cfg.Grid.Rows),
				parseInt("columns", columnsEntry.Text, &cfg.Grid.Columns),
				parseDelimiter("row delimiter", rowDelimEntry.Text, &cfg.Protocol.RowDelimiter),
				parseDelimiter("value delimiter", valueDelimEntry.Text, &cfg.Protocol.ValueDelimiter),
			)
			if err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			applySettings(state, cfg)
		},
	}

	return container.NewTabItem("Grid", form)
}

// createColorsTab creates the Range and Colors configuration tab.
func createColorsTab(state *appState) *container.TabItem {
	minEntry := widget.NewEntry()
	minEntry.SetText(strconv.FormatFloat(state.cfg.Range.Min, 'g', -1, 64))

	maxEntry := widget.NewEntry()
	maxEntry.SetText(strconv.FormatFloat(state.cfg.Range.Max, 'g', -1, 64))

	startEntry := widget.NewEntry()
	startEntry.SetText(state.cfg.Colors.Start.String())

	midEntry := widget.NewEntry()
	midEntry.SetText(state.cfg.Colors.Mid.String())

	endEntry := widget.NewEntry()
	endEntry.SetText(state.cfg.Colors.End.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Min", Widget: minEntry},
			{Text: "Max", Widget: maxEntry},
			{Text: "Start Color", Widget: startEntry, HintText: "R G B, each 0-255"},
			{Text: "Mid Color", Widget: midEntry},
			{Text: "End Color", Widget: endEntry},
		},
		OnSubmit: func() {
			cfg := state.coord.Config()
			cfg.Serial.Port = state.cfg.Serial.Port
			err := errors.Join(
				parseFloat("min", minEntry.Text, &cfg.Range.Min),
				parseFloat("max", maxEntry.Text, &cfg.Range.Max),
				parseColor("start color", startEntry.Text, &cfg.Colors.Start),
				parseColor("mid color", midEntry.Text, &cfg.Colors.Mid),
				parseColor("end color", endEntry.Text, &cfg.Colors.End),
			)
			if err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			applySettings(state, cfg)
		},
	}

	return container.NewTabItem("Colors", form)
}

// createAcquisitionTab creates the Acquisition and Chart configuration tab.
func createAcquisitionTab(state *appState) *container.TabItem {
	tickEntry := widget.NewEntry()
	tickEntry.SetText(strconv.Itoa(state.cfg.Acquisition.TickIntervalMs))

	windowEntry := widget.NewEntry()
	windowEntry.SetText(strconv.Itoa(state.coord.Charts().Window()))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Tick Interval (ms)", Widget: tickEntry},
			{Text: "Chart Window (points)", Widget: windowEntry},
		},
		OnSubmit: func() {
			cfg := state.coord.Config()
			cfg.Serial.Port = state.cfg.Serial.Port
			err := errors.Join(
				parseInt("tick interval", tickEntry.Text, &cfg.Acquisition.TickIntervalMs),
				parseInt("chart window", windowEntry.Text, &cfg.Chart.WindowSize),
			)
			if err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			applySettings(state, cfg)
		},
	}

	return container.NewTabItem("Acquisition", form)
}

// createMockTab creates the simulated device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	rateEntry := widget.NewEntry()
	rateEntry.SetText(state.cfg.Mock.Rate.String())

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(strconv.FormatFloat(state.cfg.Mock.Noise, 'g', -1, 64))

	periodEntry := widget.NewEntry()
	periodEntry.SetText(state.cfg.Mock.Period.String())

	blankEntry := widget.NewEntry()
	blankEntry.SetText(strconv.FormatFloat(state.cfg.Mock.BlankRate, 'g', -1, 64))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Frame Rate", Widget: rateEntry, HintText: "Interval between frames, e.g. 50ms"},
			{Text: "Noise", Widget: noiseEntry},
			{Text: "Wave Period", Widget: periodEntry},
			{Text: "Blank Line Rate", Widget: blankEntry, HintText: "Probability in [0, 1]"},
		},
		OnSubmit: func() {
			cfg := state.coord.Config()
			cfg.Serial.Port = state.cfg.Serial.Port
			err := errors.Join(
				parseDuration("frame rate", rateEntry.Text, &cfg.Mock.Rate),
				parseFloat("noise", noiseEntry.Text, &cfg.Mock.Noise),
				parseDuration("wave period", periodEntry.Text, &cfg.Mock.Period),
				parseFloat("blank line rate", blankEntry.Text, &cfg.Mock.BlankRate),
			)
			if err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			applySettings(state, cfg)
		},
	}

	return container.NewTabItem("Mock", form)
}

func parseInt(name, text string, dst *int) error {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("invalid %s %q", name, text)
	}
	*dst = v
	return nil
}

func parseFloat(name, text string, dst *float64) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q", name, text)
	}
	*dst = v
	return nil
}

func parseDuration(name, text string, dst *time.Duration) error {
	v, err := time.ParseDuration(strings.TrimSpace(text))
	if err != nil || v <= 0 {
		return fmt.Errorf("invalid %s %q", name, text)
	}
	*dst = v
	return nil
}

// parseColor accepts three channel values separated by spaces or commas.
func parseColor(name, text string, dst *colormap.RGB) error {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	ch := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("invalid %s %q", name, text)
		}
		ch[i] = v
	}
	c, err := colormap.FromInts(ch...)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = c
	return nil
}

// parseDelimiter accepts a single character or a byte value in decimal or 0x notation.
func parseDelimiter(name, text string, dst *config.Delimiter) error {
	if len(text) == 1 {
		*dst = config.Delimiter(text[0])
		return nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(text), 0, 8)
	if err != nil || v == 0 {
		return fmt.Errorf("invalid %s %q", name, text)
	}
	*dst = config.Delimiter(v)
	return nil
}

// delimiterText is the inverse of parseDelimiter.
func delimiterText(d config.Delimiter) string {
	if d > ' ' && d < 0x7f {
		return string(rune(d))
	}
	return fmt.Sprintf("0x%02x", d.Byte())
}
