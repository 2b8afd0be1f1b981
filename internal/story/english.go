package story

import (
	"fmt"
	"strings"
)

func englishStory(f facts, child, short bool) Output {
	name := f.name
	if name == "" {
		name = "Patient"
	}

	var title string
	if child {
		title = fmt.Sprintf("%s's Genetic Health Journey", name)
	} else {
		title = fmt.Sprintf("Understanding %s's Genetic Health", name)
	}

	var paragraphs []string
	if child {
		paragraphs = append(paragraphs, fmt.Sprintf(
			"Hello! Let me tell you about %s's genes and what they mean for health. Our genes are like instructions in our body that tell it how to work.", name))
	} else {
		paragraphs = append(paragraphs, fmt.Sprintf(
			"This report provides a comprehensive overview of %s's genetic profile and what it means for their health management. Genetic testing helps us understand inherited predispositions and make informed healthcare decisions.", name))
	}

	if len(f.conditions) > 0 {
		conditions := strings.Join(f.conditions, ", ")
		if child {
			paragraphs = append(paragraphs, fmt.Sprintf(
				"%s has been evaluated for %s. These are conditions that can sometimes run in families.", name, conditions))
		} else {
			paragraphs = append(paragraphs, fmt.Sprintf(
				"The clinical evaluation indicates assessment for %s. Understanding genetic factors helps personalize treatment approaches.", conditions))
		}
	}

	n := f.variants
	if n > 0 {
		if child {
			paragraphs = append(paragraphs, fmt.Sprintf(
				"We found %d important %s in %s's genes that doctors should know about.", n, plural(n, "change", "changes"), name))
		} else {
			paragraphs = append(paragraphs, fmt.Sprintf(
				"The analysis identified %d significant genetic %s with clinical relevance. These findings should guide therapeutic and preventive strategies.", n, plural(n, "variant", "variants")))
		}
	}

	if !short {
		if child {
			paragraphs = append(paragraphs, fmt.Sprintf(
				"The good news is that doctors can now use this information to help %s stay as healthy as possible. Regular check-ups and following doctor's advice will help keep %s well.", name, name))
		} else {
			paragraphs = append(paragraphs,
				"This genetic information provides valuable insights for personalized medical management. It's important to discuss these findings with healthcare providers to develop an appropriate care plan.")
		}
	}

	var highlights []string
	if child {
		highlights = append(highlights, "See your doctor regularly for check-ups")
		if n > 0 {
			highlights = append(highlights, fmt.Sprintf("Tell your doctor about the %d genetic %s", n, plural(n, "finding", "findings")))
		}
		highlights = append(highlights,
			"Ask questions about what these genes mean",
			"Learn about staying healthy")
	} else {
		highlights = append(highlights, "Schedule comprehensive review with genetic counselor")
		if n > 0 {
			highlights = append(highlights, fmt.Sprintf("Review the %d identified %s with your physician", n, plural(n, "variant", "variants")))
		}
		highlights = append(highlights,
			"Develop personalized care plan based on findings",
			"Consider cascade testing if indicated for family members")
	}

	return Output{Title: title, Paragraphs: paragraphs, Highlights: highlights}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
