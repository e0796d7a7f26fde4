package main

import (
	"context"
	"embed"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"thebridge/app"
	"thebridge/app/api"
	"thebridge/app/settings"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	// Create an instance of the app structure
	appInstance := app.NewApp()
	settingsService := settings.NewSettingsService()
	// Inject cache manager (app) so settings service can clear caches when needed
	settingsService.SetCacheManager(appInstance)

	// With an HTTP address configured the filter engine runs headless
	if addr := settings.GetEffectiveSettings().HTTPAddr; addr != "" {
		runHeadless(appInstance, addr)
		return
	}

	emit := func(event string) func(*menu.CallbackData) {
		return func(_ *menu.CallbackData) {
			if appInstance != nil && appInstance.Ctx() != nil {
				wruntime.EventsEmit(appInstance.Ctx(), event)
			}
		}
	}

	AppMenu := menu.NewMenu()
	if runtime.GOOS == "darwin" {
		AppMenu.Append(menu.AppMenu())
	}

	FileMenu := AppMenu.AddSubmenu("File")
	FileMenu.AddText("Open File", keys.CmdOrCtrl("o"), emit("menu:open"))
	FileMenu.AddText("Open File with Options", keys.Combo("o", keys.CmdOrCtrlKey, keys.ShiftKey), emit("menu:openWithOptions"))
	FileMenu.AddText("Open Directory", keys.Combo("d", keys.CmdOrCtrlKey, keys.ShiftKey), emit("menu:openDirectory"))
	FileMenu.AddText("Open Database Table", nil, emit("menu:openPostgres"))
	FileMenu.AddText("Reload Keeping Filters", keys.CmdOrCtrl("r"), emit("menu:reload"))
	FileMenu.AddSeparator()
	FileMenu.AddText("Settings", keys.CmdOrCtrl(","), emit("menu:settings"))

	FilterMenu := AppMenu.AddSubmenu("Filters")
	FilterMenu.AddText("Save Preset", keys.CmdOrCtrl("s"), emit("menu:savePreset"))
	FilterMenu.AddText("Apply Preset", keys.CmdOrCtrl("p"), emit("menu:applyPreset"))
	FilterMenu.AddSeparator()
	FilterMenu.AddText("Find Duplicates", nil, emit("menu:duplicates"))
	FilterMenu.AddText("Clear All Filters", keys.Combo("x", keys.CmdOrCtrlKey, keys.ShiftKey), emit("menu:clearFilters"))

	ViewMenu := AppMenu.AddSubmenu("View")
	ViewMenu.AddText("Toggle Filter Panel", keys.CmdOrCtrl("b"), emit("menu:toggleFilters"))
	ViewMenu.AddText("Toggle Search", keys.CmdOrCtrl("f"), emit("menu:toggleSearch"))
	ViewMenu.AddText("Toggle Console", keys.CmdOrCtrl("`"), emit("menu:toggleConsole"))
	ViewMenu.AddSeparator()
	ViewMenu.AddText("Toggle Cache Indicator", nil, emit("menu:toggleCacheIndicator"))

	HelpMenu := AppMenu.AddSubmenu("Help")
	HelpMenu.AddText("Date Expressions", nil, emit("menu:syntax"))
	HelpMenu.AddText("Shortcuts", nil, emit("menu:shortcuts"))
	HelpMenu.AddSeparator()
	HelpMenu.AddText("About", nil, emit("menu:about"))

	// Get saved window size or use defaults
	width, height, err := appInstance.GetSavedWindowSize()
	if err != nil {
		println("Warning: Failed to get saved window size, using defaults:", err.Error())
		width, height = 1024, 768
	}

	// Create application with options
	err = wails.Run(&options.App{
		Title:     "The Bridge",
		Width:     width,
		Height:    height,
		Menu:      AppMenu,
		MinWidth:  400,
		MinHeight: 300,
		MaxWidth:  7680,
		MaxHeight: 4320,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup: func(ctx context.Context) {
			appInstance.Startup(ctx)
			settingsService.Startup(ctx)
		},
		Bind: []interface{}{
			appInstance,
			settingsService,
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}

func runHeadless(appInstance *app.App, addr string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appInstance.StartupHeadless(ctx)
	if err := api.Serve(ctx, addr, appInstance.HTTPHandler()); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
}
