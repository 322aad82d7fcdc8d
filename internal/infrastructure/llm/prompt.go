package llm

import (
	"fmt"
	"strings"

	"github.com/personashop/backend/internal/domain"
)

const maxPromptIngredients = 10

func buildExplainPrompt(p domain.ExplainPrompt) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Explain why this product received a match score of %d/100 for this profile.\n\n", p.Score)
	writeProfile(&b, p.Profile)

	b.WriteString("\nProduct:\n")
	writeProduct(&b, p.Product)

	if pros := p.Breakdown.Pros(); len(pros) > 0 {
		fmt.Fprintf(&b, "\nStrengths found: %s\n", strings.Join(pros, "; "))
	}
	if cons := p.Breakdown.Cons(); len(cons) > 0 {
		fmt.Fprintf(&b, "Weaknesses found: %s\n", strings.Join(cons, "; "))
	}
	if !p.IsSafe {
		fmt.Fprintf(&b, "\nSAFETY: this product is NOT safe for this profile: %s. Say so clearly.\n", strings.Join(p.Safety, "; "))
	}

	b.WriteString(`
Do not change the score. Reply in exactly this format:
EXPLANATION: 2-3 sentences on why the product suits or does not suit this profile
PROS:
- first advantage
- second advantage
CONS:
- first drawback
`)
	return b.String()
}

func buildComparePrompt(p domain.ComparePrompt) string {
	var b strings.Builder

	b.WriteString("Compare these products for the following profile.\n\n")
	writeProfile(&b, p.Profile)

	b.WriteString("\nProducts:\n")
	for i, r := range p.Results {
		fmt.Fprintf(&b, "%d. %s - $%.2f, match score %d/100", i+1, r.Product.DisplayName(), r.Product.Price, r.MatchScore)
		if !r.IsSafe {
			b.WriteString(", UNSAFE")
		}
		b.WriteString("\n")
		if len(r.Pros) > 0 {
			fmt.Fprintf(&b, "   Pros: %s\n", strings.Join(firstN(r.Pros, 2), "; "))
		}
		if len(r.Cons) > 0 {
			fmt.Fprintf(&b, "   Cons: %s\n", strings.Join(firstN(r.Cons, 2), "; "))
		}
	}

	fmt.Fprintf(&b, "\nThe best choice is %s. Write a 3-4 sentence comparison summary explaining why, "+
		"and mention any product that is unsafe. Reply with the summary text only.\n", p.Best.Product.DisplayName())
	return b.String()
}

func writeProfile(b *strings.Builder, p domain.Profile) {
	b.WriteString("Profile:\n")
	fmt.Fprintf(b, "- Name: %s\n", p.DisplayName())
	fmt.Fprintf(b, "- Type: %s\n", p.Category)
	fmt.Fprintf(b, "- Age: %g years\n", p.AgeYears)
	if size := p.EffectiveSizeCategory(); size != "" {
		fmt.Fprintf(b, "- Size: %s\n", size)
	}
	if p.WeightLbs != nil {
		fmt.Fprintf(b, "- Weight: %g lbs\n", *p.WeightLbs)
	}
	fmt.Fprintf(b, "- Allergies: %s\n", listOrNone(p.Allergies))
	fmt.Fprintf(b, "- Health conditions: %s\n", listOrNone(p.HealthConditions))
}

func writeProduct(b *strings.Builder, p domain.Product) {
	a := p.Attributes
	fmt.Fprintf(b, "- Name: %s\n", p.Name)
	fmt.Fprintf(b, "- Brand: %s\n", p.Brand)
	fmt.Fprintf(b, "- Price: $%.2f\n", p.Price)
	if a.PrimaryProtein != "" {
		fmt.Fprintf(b, "- Primary protein: %s\n", a.PrimaryProtein)
	}
	if len(a.Ingredients) > 0 {
		fmt.Fprintf(b, "- Ingredients: %s\n", strings.Join(firstN(a.Ingredients, maxPromptIngredients), ", "))
	}
	if len(a.AllergenTags) > 0 {
		fmt.Fprintf(b, "- Allergens: %s\n", strings.Join(a.AllergenTags, ", "))
	}
	for _, key := range []string{"protein_pct", "fat_pct"} {
		if v, ok := a.Nutrient(key); ok {
			fmt.Fprintf(b, "- %s: %g%%\n", key, v)
		}
	}
	if len(a.LifeStage) > 0 {
		fmt.Fprintf(b, "- Life stage: %s\n", strings.Join(a.LifeStage, ", "))
	}
	if len(a.SizeSuitability) > 0 {
		fmt.Fprintf(b, "- Size suitability: %s\n", strings.Join(a.SizeSuitability, ", "))
	}
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
