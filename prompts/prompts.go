package prompts

import _ "embed"

// Embedded prompt files

//go:embed translate_system.txt
var translateSystem string

// TranslateSystem is the fixed system prompt for problem statement translation.
func TranslateSystem() string { return translateSystem }
