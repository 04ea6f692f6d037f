package prompt

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// Options carries the free-form attribute selections for one generation.
// All fields are matched case-insensitively against the synonym tables.
type Options struct {
	AgeGroup    string
	Gender      string
	SkinTone    string
	StyleType   string
	Environment string
	ModelType   string
	AspectRatio string
}

// Resolved holds the descriptor each category resolved to, raw fallbacks
// included.
type Resolved struct {
	AgeGroup    string
	Gender      string
	SkinTone    string
	StyleType   string
	Environment string
	ModelType   string
	AspectRatio string
}

// Result is the assembled prompt plus resolution metadata.
type Result struct {
	Prompt   string
	Resolved Resolved
	Missing  []string
}

var fold = cases.Fold()

var ageGroups = map[string]string{
	"child":       "child",
	"kid":         "child",
	"kids":        "child",
	"teen":        "teen",
	"teenager":    "teen",
	"young":       "young adult",
	"young adult": "young adult",
	"adult":       "young adult",
	"middle":      "middle-aged",
	"middle-aged": "middle-aged",
	"senior":      "senior",
	"old":         "senior",
	"elderly":     "senior",
}

var genders = map[string]string{
	"female":    "female",
	"woman":     "female",
	"women":     "female",
	"girl":      "female",
	"male":      "male",
	"man":       "male",
	"men":       "male",
	"boy":       "male",
	"unisex":    "androgynous",
	"neutral":   "androgynous",
	"nonbinary": "androgynous",
}

var skinTones = map[string]string{
	"light":  "fair-skinned",
	"fair":   "fair-skinned",
	"pale":   "fair-skinned",
	"medium": "medium-toned",
	"tan":    "medium-toned",
	"olive":  "medium-toned",
	"dark":   "dark-skinned",
	"deep":   "dark-skinned",
	"rich":   "dark-skinned",
}

var styleTypes = map[string]string{
	"casual":     "casual everyday",
	"formal":     "formal tailored",
	"business":   "formal tailored",
	"streetwear": "streetwear",
	"street":     "streetwear",
	"sport":      "athletic sportswear",
	"sporty":     "athletic sportswear",
	"athletic":   "athletic sportswear",
	"elegant":    "elegant high-fashion",
	"luxury":     "elegant high-fashion",
}

var environments = map[string]string{
	"studio":  "studio lighting",
	"outdoor": "outdoor city street",
	"beach":   "sunlit beach",
	"nature":  "natural parkland",
	"park":    "natural parkland",
	"indoor":  "soft indoor setting",
	"home":    "soft indoor setting",
}

var modelTypes = map[string]string{
	"full":      "full-body pose",
	"full-body": "full-body pose",
	"half":      "half-body framing",
	"torso":     "half-body framing",
	"headshot":  "portrait framing",
	"portrait":  "portrait framing",
}

var aspectRatios = map[string]string{
	"1:1":       "1:1",
	"square":    "1:1",
	"3:4":       "3:4",
	"4:5":       "4:5",
	"9:16":      "9:16",
	"vertical":  "9:16",
	"16:9":      "16:9",
	"landscape": "16:9",
}

var ratioPattern = regexp.MustCompile(`^\d+:\d+$`)

// Assemble builds the generation prompt from the supplied selections. Form
// selections override the base options field by field. Only skin tone, style
// and age group record fallbacks in Missing; the remaining categories pass
// unrecognized values through silently.
func Assemble(opts Options, form *Options) Result {
	merged := merge(opts, form)

	var missing []string
	resolve := func(table map[string]string, raw string, category string) string {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return ""
		}
		if mapped, ok := table[fold.String(raw)]; ok {
			return mapped
		}
		if category != "" {
			missing = append(missing, category)
		}
		return raw
	}

	resolved := Resolved{
		AgeGroup:    resolve(ageGroups, merged.AgeGroup, "ageGroup"),
		Gender:      resolve(genders, merged.Gender, ""),
		SkinTone:    resolve(skinTones, merged.SkinTone, "skinTone"),
		StyleType:   resolve(styleTypes, merged.StyleType, "styleType"),
		Environment: resolve(environments, merged.Environment, ""),
		ModelType:   resolve(modelTypes, merged.ModelType, ""),
		AspectRatio: resolve(aspectRatios, merged.AspectRatio, ""),
	}

	clauses := []string{subjectClause(resolved, merged.SkinTone)}
	if tone := toneClause(resolved, merged.SkinTone); tone != "" {
		clauses = append(clauses, tone)
	}
	clauses = append(clauses, "wearing the provided garment with the entire outfit clearly visible")
	if resolved.StyleType != "" {
		clauses = append(clauses, resolved.StyleType+" outfit")
	}
	if resolved.ModelType != "" {
		clauses = append(clauses, resolved.ModelType)
	}
	if resolved.Environment != "" {
		clauses = append(clauses, resolved.Environment)
	}
	if ratio := resolved.AspectRatio; ratio != "" && ratioPattern.MatchString(ratio) {
		clauses = append(clauses, ratio+" aspect ratio composition")
	}
	clauses = append(clauses, "neutral background, professional lighting, crisp details")

	return Result{
		Prompt:   strings.Join(clauses, ", "),
		Resolved: resolved,
		Missing:  missing,
	}
}

func subjectClause(r Resolved, _ string) string {
	parts := []string{"Full-body"}
	if r.AgeGroup != "" {
		parts = append(parts, r.AgeGroup)
	}
	if r.Gender != "" {
		parts = append(parts, r.Gender)
	}
	parts = append(parts, "model")
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// toneClause renders mapped tones as their descriptor and unmapped raw values
// as "<raw> skin tone".
func toneClause(r Resolved, rawInput string) string {
	if r.SkinTone == "" {
		return ""
	}
	if _, ok := skinTones[fold.String(strings.TrimSpace(rawInput))]; ok {
		return "with " + r.SkinTone + " complexion"
	}
	return r.SkinTone + " skin tone"
}

func merge(base Options, form *Options) Options {
	if form == nil {
		return base
	}
	pick := func(override, fallback string) string {
		if strings.TrimSpace(override) != "" {
			return override
		}
		return fallback
	}
	return Options{
		AgeGroup:    pick(form.AgeGroup, base.AgeGroup),
		Gender:      pick(form.Gender, base.Gender),
		SkinTone:    pick(form.SkinTone, base.SkinTone),
		StyleType:   pick(form.StyleType, base.StyleType),
		Environment: pick(form.Environment, base.Environment),
		ModelType:   pick(form.ModelType, base.ModelType),
		AspectRatio: pick(form.AspectRatio, base.AspectRatio),
	}
}
