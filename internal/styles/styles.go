// Package styles holds the static catalogue of visual transformation
// styles and assembles generation prompts from them. The catalogue is
// built once at init and never mutated; BuildPrompt is the authoritative
// validator of style identifiers for the whole pipeline.
package styles

import (
	"fmt"
	"sort"

	"server/internal/domain"
)

// Style is one named visual-transformation configuration: a human
// readable name, the instruction handed to the model, and a structured
// descriptor block appended to the prompt.
type Style struct {
	ID          string
	Name        string
	Instruction string
	Descriptor  string
}

var registry = map[string]Style{
	"anime-default-001": {
		ID:          "anime-default-001",
		Name:        "Anime Default",
		Instruction: "turn this into a cinematic anime style animation",
		Descriptor: `{
  "visualStyle": {
    "animation": {
      "technique": "cutout-style",
      "movement": "deliberately jerky and simplistic",
      "perspective": "flat, 2D presentation"
    },
    "characters": {
      "bodyType": "simple geometric shapes",
      "heads": "disproportionately large, often oval or circular",
      "limbs": "thin, often lacking detailed joints or musculature",
      "mouths": "simple lines that change shape without complex animation",
      "eyes": "basic dots or circles, minimal blinking animation"
    },
    "colorPalette": {
      "primary": "bright, saturated colors",
      "backgrounds": "simple, often with minimal detail",
      "outlines": "bold black lines around all elements"
    },
    "detailLevel": {
      "overall": "intentionally simplistic",
      "textures": "minimal to none",
      "shadows": "basic or absent"
    },
    "restrictions": {
      "characters": "do not introduce characters that are not in the source image",
      "copyright": "do not depict copyrighted characters or locations"
    }
  }
}`,
	},
	"cyberpunk-anime-003": {
		ID:          "cyberpunk-anime-003",
		Name:        "Cyberpunk Anime",
		Instruction: "turn this into a neon-lit cyberpunk anime illustration",
		Descriptor: `{
  "visualStyle": {
    "characters": {
      "proportions": "realistic anime proportions with sharp jawlines",
      "eyes": "large, reflective, catching neon light",
      "clothing": "techwear layers, glowing accents"
    },
    "colorPalette": {
      "primary": "deep blues and purples with magenta and cyan neon",
      "backgrounds": "dense cityscape, holographic signage, rain-slick streets",
      "lighting": "strong rim light from artificial sources"
    },
    "linework": "clean digital lines with heavy contrast shading",
    "restrictions": {
      "characters": "do not introduce characters that are not in the source image",
      "copyright": "do not depict copyrighted characters or locations"
    }
  }
}`,
	},
	"chibi-kawaii-004": {
		ID:          "chibi-kawaii-004",
		Name:        "Chibi Kawaii",
		Instruction: "turn this into a cute chibi style illustration",
		Descriptor: `{
  "visualStyle": {
    "characters": {
      "proportions": "two to three heads tall, oversized head",
      "eyes": "huge, sparkling, rounded",
      "limbs": "short and stubby, no visible joints"
    },
    "colorPalette": {
      "primary": "soft pastels, pink and mint accents",
      "backgrounds": "plain or simple patterns, hearts and stars"
    },
    "linework": "thick, rounded, uniform outlines",
    "restrictions": {
      "characters": "do not introduce characters that are not in the source image",
      "copyright": "do not depict copyrighted characters or locations"
    }
  }
}`,
	},
	"shoujo-soft-006": {
		ID:          "shoujo-soft-006",
		Name:        "Shoujo Soft",
		Instruction: "turn this into a soft shoujo manga style illustration",
		Descriptor: `{
  "visualStyle": {
    "characters": {
      "proportions": "slender, elongated",
      "eyes": "large with layered highlights and long lashes",
      "hair": "flowing, detailed strands"
    },
    "colorPalette": {
      "primary": "light, airy tones with watercolor softness",
      "backgrounds": "floral motifs, sparkles, soft vignettes"
    },
    "linework": "fine, delicate lines with screentone shading",
    "restrictions": {
      "characters": "do not introduce characters that are not in the source image",
      "copyright": "do not depict copyrighted characters or locations"
    }
  }
}`,
	},
	"titan-dark-010": {
		ID:          "titan-dark-010",
		Name:        "Titan Dark",
		Instruction: "turn this into a gritty dark fantasy anime illustration",
		Descriptor: `{
  "visualStyle": {
    "characters": {
      "proportions": "realistic, muscular definition",
      "expressions": "intense, weathered",
      "clothing": "worn leather, harness straps, muted uniforms"
    },
    "colorPalette": {
      "primary": "desaturated earth tones with harsh contrast",
      "backgrounds": "ruined walls, overcast skies, smoke"
    },
    "linework": "rough, sketch-heavy lines with crosshatch shading",
    "restrictions": {
      "characters": "do not introduce characters that are not in the source image",
      "copyright": "do not depict copyrighted characters or locations"
    }
  }
}`,
	},
}

// Lookup returns the style for the given identifier.
func Lookup(styleID string) (Style, error) {
	style, ok := registry[styleID]
	if !ok {
		return Style{}, fmt.Errorf("style %q: %w", styleID, domain.ErrUnknownStyle)
	}
	return style, nil
}

// Known returns the sorted list of registered style identifiers.
func Known() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BuildPrompt assembles the full generation prompt: the image description
// first (so the model grounds itself on what it must not reproduce
// verbatim), then the style instruction, then the descriptor block.
// Unknown style identifiers are a hard failure, not a fallback.
func BuildPrompt(styleID, description string) (string, error) {
	style, err := Lookup(styleID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\n\n%s\n\n\n<style>\n%s\n</style>", description, style.Instruction, style.Descriptor), nil
}
