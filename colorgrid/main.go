package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/colorgrid/pkg/acquire"
	"github.com/itohio/colorgrid/pkg/config"
	"github.com/itohio/colorgrid/pkg/export"
	"github.com/itohio/colorgrid/pkg/link"
	"github.com/itohio/colorgrid/pkg/logging"
	"github.com/itohio/colorgrid/pkg/publish"
)

const mockPortName = "Simulated device"

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated device instead of serial port")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	closeLog, err := logging.Configure(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer closeLog()

	exporter, err := export.FromConfig(cfg.Export)
	if err != nil {
		log.Fatalf("Failed to configure export: %v", err)
	}
	defer exporter.Close()

	application := app.NewWithID("com.itohio.colorgrid")

	window := application.NewWindow("Color Grid")
	window.Resize(fyne.NewSize(900, 700))
	window.CenterOnScreen()

	state := &appState{
		app:        application,
		cfg:        cfg,
		configPath: *configFlag,
		window:     window,
		useMock:    *mockFlag,
		charts:     make(map[int]*chartWindow),
	}
	state.repaint = newRepaintThrottle(updateInterval, state.paintCells)

	displays := acquire.Displays{acquire.NewLogDisplay(), &uiDisplay{state: state}}
	if cfg.MQTT.Broker != "" {
		feed, err := publish.Connect(cfg.MQTT)
		if err != nil {
			log.Printf("MQTT feed disabled: %v", err)
		} else {
			defer feed.Close()
			displays = append(displays, feed)
		}
	}
	state.coord = acquire.New(cfg, displays, exporter)

	toolbar := createToolbar(state)
	state.status = widget.NewLabel(acquire.Idle.String())
	state.gridHolder = container.NewStack()
	state.rebuildGrid()

	window.SetContent(container.NewBorder(
		toolbar,
		state.status,
		nil,
		nil,
		state.gridHolder,
	))
	window.SetCloseIntercept(func() {
		handleClose(state)
	})

	if *mockFlag {
		state.portSelect.SetSelected(mockPortName)
	}

	window.ShowAndRun()
}

// appState holds the application state. Fields other than coord and repaint are only
// touched on the fyne thread.
type appState struct {
	app        fyne.App
	cfg        *config.Config
	configPath string
	coord      *acquire.Coordinator
	window     fyne.Window
	useMock    bool

	portSelect *widget.Select
	portMap    map[string]string // display name -> port name
	startBtn   *widget.Button
	status     *widget.Label
	gridHolder *fyne.Container
	grid       *gridView
	charts     map[int]*chartWindow
	repaint    *repaintThrottle
}

// createToolbar creates the toolbar with the port selector, Refresh, Start/Stop and Settings buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	state.portSelect = widget.NewSelect(nil, func(selected string) {
		handlePortSelected(state, selected)
	})
	state.portSelect.PlaceHolder = "Select port"
	refreshPorts(state)

	refreshBtn := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		refreshPorts(state)
	})

	state.startBtn = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), func() {
		handleStartStop(state)
	})
	state.startBtn.Disable()

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(refreshBtn, state.startBtn, settingsBtn),
		nil,
		state.portSelect,
	)
}

// refreshPorts re-enumerates serial ports, keeping the configured port in the list.
func refreshPorts(state *appState) {
	options, portMap := portOptions(state.cfg.Serial.Port)
	options = append(options, mockPortName)
	state.portMap = portMap
	state.portSelect.Options = options
	state.portSelect.Refresh()
}

// portOptions lists available serial ports by display name. current is
// appended when the enumeration does not report it.
func portOptions(current string) ([]string, map[string]string) {
	ports, err := link.Ports()
	if err != nil {
		log.Printf("Failed to list serial ports: %v", err)
	}

	options := []string{}
	portMap := make(map[string]string)
	for _, port := range ports {
		displayName := port.Name
		if port.Description != "" && port.Description != port.Name {
			displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
		}
		options = append(options, displayName)
		portMap[displayName] = port.Name
	}
	sort.Strings(options)

	found := false
	for _, name := range portMap {
		if name == current {
			found = true
			break
		}
	}
	if !found && current != "" {
		options = append(options, current)
		portMap[current] = current
	}
	return options, portMap
}

// newLink builds the link for the selected port.
func newLink(state *appState, selected string) link.Link {
	if selected == mockPortName {
		return link.NewMock(state.cfg)
	}
	port := state.portMap[selected]
	if port == "" {
		port = selected
	}
	state.cfg.Serial.Port = port
	return link.New(port, state.cfg.Serial.BaudRate, state.cfg.Serial.ReadTimeout)
}

// handlePortSelected validates the newly selected device.
func handlePortSelected(state *appState, selected string) {
	if selected == "" || state.coord.State().Active() {
		return
	}
	state.useMock = selected == mockPortName

	if err := state.coord.Open(newLink(state, selected)); err != nil {
		dialog.ShowError(fmt.Errorf("failed to open %s: %w", selected, err), state.window)
		return
	}
	log.Printf("Selected %s", selected)
}

// handleStartStop handles the Start/Stop button click.
func handleStartStop(state *appState) {
	if state.coord.State().Active() {
		state.startBtn.Disable()
		// Stop blocks until the in-flight read has completed
		go state.coord.Stop()
		return
	}

	if err := state.coord.Start(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to start acquisition: %w", err), state.window)
	}
}

// handleClose stops a running session, waits for its export and saves the configuration.
func handleClose(state *appState) {
	state.coord.Stop()
	state.coord.Wait()

	cfg := state.coord.Config()
	cfg.Serial.Port = state.cfg.Serial.Port
	if err := cfg.Save(state.configPath); err != nil {
		log.Printf("Failed to save config: %v", err)
	}

	state.closeCharts()
	state.window.Close()
}

// rebuildGrid replaces the grid view after the grid shape changed.
func (s *appState) rebuildGrid() {
	s.grid = newGridView(s.coord.Grid(), func(cell int) {
		s.openChart(cell)
	})
	s.gridHolder.Objects = []fyne.CanvasObject{s.grid.container}
	s.gridHolder.Refresh()
}

// setState reflects the coordinator state in the toolbar and status bar.
func (s *appState) setState(st acquire.State) {
	if st == acquire.ReadInFlight {
		st = acquire.Running
	}
	s.status.SetText(st.String())

	if st.Active() {
		s.startBtn.SetText("Stop")
		s.startBtn.SetIcon(theme.MediaStopIcon())
		s.portSelect.Disable()
	} else {
		s.startBtn.SetText("Start")
		s.startBtn.SetIcon(theme.MediaPlayIcon())
		s.portSelect.Enable()
	}

	switch {
	case st == acquire.Stopping:
		s.startBtn.Disable()
	case st == acquire.Idle && s.portSelect.Selected == "":
		s.startBtn.Disable()
	default:
		// A finished session keeps its link selected
		s.startBtn.Enable()
	}
}
