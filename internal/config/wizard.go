package config

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/manifoldco/promptui"
)

// imagePattern matches the map formats the viewer can decode.
const imagePattern = "**/*.{png,jpg,jpeg,gif,bmp,tif,tiff,webp}"

// skipDirs are never searched for map images.
var skipDirs = []string{"node_modules/**", ".git/**", "vendor/**", "dist/**", "build/**"}

// FindImages returns candidate map images below fsys, sorted by path.
func FindImages(fsys fs.FS) ([]string, error) {
	matches, err := doublestar.Glob(fsys, imagePattern, doublestar.WithFilesOnly(), doublestar.WithNoFollow())
	if err != nil {
		return nil, fmt.Errorf("searching for images: %w", err)
	}

	var out []string
	for _, m := range matches {
		if skipped(m) {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func skipped(path string) bool {
	for _, pattern := range skipDirs {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to mapview! Let's configure your map.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Map image.
	images, err := FindImages(os.DirFS("."))
	if err != nil {
		return nil, err
	}
	if len(images) > 0 {
		imagePrompt := promptui.Select{
			Label: "Select the map image",
			Items: images,
		}
		_, cfg.Map.Image, err = imagePrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("image selection: %w", err)
		}
	} else {
		imagePrompt := promptui.Prompt{
			Label:   "Path to the map image",
			Default: cfg.Map.Image,
		}
		cfg.Map.Image, err = imagePrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("image path: %w", err)
		}
	}

	// 2. Drag sensitivity.
	sensPrompt := promptui.Prompt{
		Label:    "Drag sensitivity",
		Default:  "1",
		Validate: validatePositive,
	}
	sensStr, err := sensPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("sensitivity: %w", err)
	}
	cfg.Map.Sensitivity, _ = strconv.ParseFloat(strings.TrimSpace(sensStr), 64)

	// 3. Chat provider.
	providerPrompt := promptui.Select{
		Label: "Select chat provider",
		Items: []string{"google", "openai", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Chat.Provider = ProviderType(providerStr)

	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: DefaultModel(cfg.Chat.Provider),
	}
	cfg.Chat.Model, err = modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 4. Port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	if envVar := APIKeyEnvVar(cfg.Chat.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running mapview server.\n", envVar)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePositive(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if v <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}
