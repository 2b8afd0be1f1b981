package story

import (
	"fmt"
	"strings"
)

// Arabic list separator.
const arabicComma = "، "

func arabicStory(f facts, child, short bool) Output {
	name := f.name
	if name == "" {
		name = "المريض"
	}

	var title string
	if child {
		title = fmt.Sprintf("رحلة %s الصحية الجينية", name)
	} else {
		title = fmt.Sprintf("فهم الملف الجيني لـ %s", name)
	}

	var paragraphs []string
	if child {
		paragraphs = append(paragraphs, fmt.Sprintf(
			"مرحباً! دعني أخبرك عن الجينات لدى %s وما تعني لصحته. جيناتنا مثل التعليمات في أجسامنا التي تخبر الجسم بكيفية العمل.", name))
	} else {
		paragraphs = append(paragraphs, fmt.Sprintf(
			"يوفر هذا التقرير نظرة شاملة على الملف الجيني لـ %s وما يعنيه لإدارة صحته. يساعدنا الاختبار الجيني على فهم الاستعدادات الوراثية واتخاذ قرارات صحية مستنيرة.", name))
	}

	if len(f.conditions) > 0 {
		conditions := strings.Join(f.conditions, arabicComma)
		if child {
			paragraphs = append(paragraphs, fmt.Sprintf(
				"تم تقييم %s لـ %s. هذه حالات قد تسري أحياناً في العائلات.", name, conditions))
		} else {
			paragraphs = append(paragraphs, fmt.Sprintf(
				"يشير التقييم السريري إلى تقييم لـ %s. يساعد فهم العوامل الوراثية على تخصيص نهج العلاج.", conditions))
		}
	}

	n := f.variants
	if n > 0 {
		if child {
			paragraphs = append(paragraphs, fmt.Sprintf(
				"وجدنا %d %s في جينات %s يجب أن يعرفها الأطباء.", n, plural(n, "تغييراً مهماً", "تغييرات مهمة"), name))
		} else {
			paragraphs = append(paragraphs, fmt.Sprintf(
				"حددت التحليلات %d %s ذات صلة سريرية. يجب أن توجه هذه النتائج الاستراتيجيات العلاجية والوقائية.", n, plural(n, "متغيراً وراثياً", "متغيرات وراثية")))
		}
	}

	if !short {
		if child {
			paragraphs = append(paragraphs, fmt.Sprintf(
				"الخبر السار هو أن الأطباء يمكنهم الآن استخدام هذه المعلومات لمساعدة %s على البقاء بصحة جيدة قدر الإمكان. الفحوصات المنتظمة واتباع نصائح الطبيب ستساعد في الحفاظ على صحة %s.", name, name))
		} else {
			paragraphs = append(paragraphs,
				"توفر هذه المعلومات الوراثية رؤى قيمة لإدارة طبية مخصصة. من المهم مناقشة هذه النتائج مع مقدمي الرعاية الصحية لتطوير خطة رعاية مناسبة.")
		}
	}

	var highlights []string
	if child {
		highlights = append(highlights, "زيارة الطبيب بشكل منتظم للفحوصات الدورية")
		if n > 0 {
			highlights = append(highlights, fmt.Sprintf("إخبار الطبيب عن الاستنتاجات الجينية البالغ عددها %d", n))
		}
		highlights = append(highlights,
			"اطرح أسئلة حول معنى هذه الجينات",
			"تعلم كيفية البقاء بصحة جيدة")
	} else {
		highlights = append(highlights, "جدولة مراجعة شاملة مع مستشار وراثي")
		if n > 0 {
			highlights = append(highlights, fmt.Sprintf("مراجعة %s البالغ عددها %d مع طبيبك", plural(n, "المتغير الوراثي المحدد", "المتغيرات الوراثية المحددة"), n))
		}
		highlights = append(highlights,
			"تطوير خطة رعاية مخصصة بناءً على النتائج",
			"النظر في الاختبار المتسلسل إذا لزم الأمر لأفراد الأسرة")
	}

	return Output{Title: title, Paragraphs: paragraphs, Highlights: highlights}
}
