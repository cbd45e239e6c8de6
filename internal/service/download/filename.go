package download

import (
	"TTSApp/internal/service/tts"
	"regexp"
	"strconv"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// MaxSlugLen — предел длины текстовой части имени файла.
const MaxSlugLen = 50

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	separators = regexp.MustCompile(`[\s_-]+`)
)

// Slugify переводит текст в ASCII-имя: транслитерация, нижний регистр, без знаков,
// пробелы и дефисы схлопываются в один дефис, края без дефисов, не длиннее MaxSlugLen.
func Slugify(text string) string {
	s := strings.ToLower(unidecode.Unidecode(text))
	s = nonWord.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxSlugLen {
		s = s[:MaxSlugLen]
	}
	return s
}

// Filename — имя файла для сохранения сообщения: <slug>_<id>.<ext>.
func Filename(text string, id int64, format tts.Format) string {
	return Slugify(text) + "_" + strconv.FormatInt(id, 10) + "." + format.Ext()
}

// Path — адрес сохранения файла сообщения.
func Path(id int64) string {
	return "/api/messages/" + strconv.FormatInt(id, 10) + "/download"
}
