package main

// ActionDefinition defines a viewer action with its default keybindings and description
type ActionDefinition struct {
	Name        string
	Keys        []string
	Description string
	Intent      IntentKind
}

// actionDefinitions contains all viewer actions with default keybindings
var actionDefinitions = []ActionDefinition{
	{"next", []string{"ArrowRight", "Space"}, "Next image", IntentNext},
	{"previous", []string{"ArrowLeft"}, "Previous image", IntentPrevious},
	{"close", []string{"Escape"}, "Back to gallery", IntentClose},
	{"fullscreen", []string{"KeyF", "Shift+KeyF"}, "Toggle fullscreen", IntentToggleFullscreen},
	{"controls", []string{"KeyH"}, "Show/hide controls", IntentToggleControls},
}

var actionByName = func() map[string]ActionDefinition {
	m := make(map[string]ActionDefinition, len(actionDefinitions))
	for _, a := range actionDefinitions {
		m[a.Name] = a
	}
	return m
}()

// resolveAction maps an action name to the intent it issues
func resolveAction(action string) (Intent, bool) {
	def, ok := actionByName[action]
	if !ok {
		return Intent{}, false
	}
	return Intent{Kind: def.Intent}, true
}

// GetActionDescriptions returns a map of action names to their descriptions
func GetActionDescriptions() map[string]string {
	descriptions := make(map[string]string, len(actionDefinitions))
	for _, action := range actionDefinitions {
		descriptions[action.Name] = action.Description
	}
	return descriptions
}

// GetDefaultKeybindings returns a map of action names to their default keybindings
func GetDefaultKeybindings() map[string][]string {
	keybindings := make(map[string][]string, len(actionDefinitions))
	for _, action := range actionDefinitions {
		keybindings[action.Name] = append([]string(nil), action.Keys...)
	}
	return keybindings
}
