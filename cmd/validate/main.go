package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/solo-dm/internal/loader"
	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/campaign"
	"github.com/jwebster45206/solo-dm/pkg/mdparse"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <campaign_dir>\n", os.Args[0])
		os.Exit(1)
	}

	validator := &CampaignValidator{}
	if err := validator.validateDir(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	for _, w := range validator.warnings {
		fmt.Println(w)
	}
	fmt.Println("Campaign directory is valid!")
}

// CampaignValidator lints a campaign directory. Errors fail validation;
// warnings point at content the parsers will skip or guess at.
type CampaignValidator struct {
	errors   []string
	warnings []string
}

func (v *CampaignValidator) validateDir(dir string) error {
	fmt.Printf("Validating %s...\n", dir)
	v.errors = nil
	v.warnings = nil

	l := loader.New(dir, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	files, err := l.LoadAll(context.Background())
	if err != nil {
		return err
	}

	mapping := l.Mapping()
	for _, key := range slices.Sorted(maps.Keys(mapping)) {
		if _, ok := files[key]; !ok {
			v.addWarning(fmt.Sprintf("missing %s (%s)", mapping[key], campaign.Title(key)))
		}
	}
	v.validateFilenames(l, mapping)

	for _, key := range slices.Sorted(maps.Keys(files)) {
		f := files[key]
		switch f.FileType {
		case campaign.FileTypeCharacterSheet:
			v.validateCharacterSheet(f)
		case campaign.FileTypeNPCDirectory:
			v.validateNPCs(f)
		case campaign.FileTypeMissions:
			v.validateMissions(f)
		case campaign.FileTypeQuickReference:
			v.validateQuickReference(f)
		default:
			if strings.TrimSpace(f.Content) == "" {
				v.addWarning(fmt.Sprintf("%s is empty", f.Filename))
			}
		}
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", dir, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *CampaignValidator) validateFilenames(l *loader.Loader, mapping map[string]string) {
	paths, err := l.MarkdownFiles()
	if err != nil {
		v.addError(err.Error())
		return
	}
	mapped := make(map[string]bool, len(mapping))
	for _, name := range mapping {
		mapped[name] = true
	}
	for _, p := range paths {
		name := filepath.Base(p)
		if mapped[name] {
			continue
		}
		if !isValidCampaignFilename(strings.TrimSuffix(name, ".md")) {
			v.addWarning(fmt.Sprintf("%s is not mapped and should be lowercase snake_case", name))
			continue
		}
		v.addWarning(fmt.Sprintf("%s is not mapped to a key and will not be loaded", name))
	}
}

func (v *CampaignValidator) validateCharacterSheet(f *campaign.File) {
	c, err := campaign.ParseCharacterSheet(f.Content)
	if err != nil {
		v.addError(fmt.Sprintf("%s: %v", f.Filename, err))
		return
	}
	if c.Name == actor.NewCharacter("").Name {
		v.addWarning(fmt.Sprintf("%s has no **Name:** field", f.Filename))
	}
	if _, ok := mdparse.FirstField(f.Content, "HP", "Hit Points"); !ok {
		v.addWarning(fmt.Sprintf("%s has no HP, the default %d will be used", f.Filename, campaign.DefaultSheetHitPoints))
	}
	if _, ok := mdparse.FirstField(f.Content, "AC", "Armor Class"); !ok {
		v.addWarning(fmt.Sprintf("%s has no AC, the default %d will be used", f.Filename, campaign.DefaultSheetArmorClass))
	}
}

func (v *CampaignValidator) validateNPCs(f *campaign.File) {
	npcs := f.NPCs()
	if len(npcs) == 0 {
		v.addError(fmt.Sprintf("%s has no NPC headings like '### **Name** ⭐⭐ [ALLY]'", f.Filename))
		return
	}
	seen := make(map[string]bool, len(npcs))
	for _, n := range npcs {
		key := strings.ToLower(n.Name)
		if seen[key] {
			v.addWarning(fmt.Sprintf("%s lists NPC '%s' more than once", f.Filename, n.Name))
		}
		seen[key] = true
		if n.Role == "" {
			v.addWarning(fmt.Sprintf("%s: NPC '%s' has no **Role:**", f.Filename, n.Name))
		}
	}
}

func (v *CampaignValidator) validateMissions(f *campaign.File) {
	missions := f.Missions()
	if len(missions) == 0 {
		v.addError(fmt.Sprintf("%s has no mission headings like '### **Title** [ACTIVE]'", f.Filename))
		return
	}
	for _, m := range missions {
		if m.Status == campaign.MissionActive && !strings.Contains(strings.ToUpper(m.StatusTag), "ACTIVE") {
			v.addWarning(fmt.Sprintf("%s: mission '%s' has unrecognized status [%s], treated as active", f.Filename, m.Name(), m.StatusTag))
		}
		if m.IsActive() && len(m.Objectives) == 0 {
			v.addWarning(fmt.Sprintf("%s: active mission '%s' has no objectives", f.Filename, m.Name()))
		}
	}
}

func (v *CampaignValidator) validateQuickReference(f *campaign.File) {
	qr := f.QuickReference()
	if len(qr) == 0 {
		v.addError(fmt.Sprintf("%s has no '**Key:** value' lines", f.Filename))
		return
	}
	if qr.Get("current_location") == "" {
		v.addWarning(fmt.Sprintf("%s has no **Location:**, sessions will start in an unknown place", f.Filename))
	}
}

func (v *CampaignValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func (v *CampaignValidator) addWarning(msg string) {
	v.warnings = append(v.warnings, "  ! "+msg)
}

var validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidCampaignFilename(name string) bool {
	return validFilenameRegex.MatchString(name)
}
