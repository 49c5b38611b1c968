package cleaner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head>
<title> Смартфон X — купить на OZON </title>
<meta property="og:title" content="Смартфон X">
<meta property="og:image" content="https://cdn.ozon.ru/1.jpg">
<meta property="og:image" content="https://cdn.ozon.ru/2.jpg">
<meta name="description" content="  Описание из меты ">
</head><body>
<h1> Смартфон X 128 ГБ </h1>
<div id="state-webPrice-3121879-default-1" data-state="{&quot;cardPrice&quot;:&quot;9 990 ₽&quot;,&quot;price&quot;:&quot;12 990 ₽&quot;}"></div>
</body></html>`

func TestExtractMeta(t *testing.T) {
	meta := ExtractMeta(samplePage, ParseHTML(samplePage))
	assert.Equal(t, "Смартфон X — купить на OZON", meta.Title)
	assert.Equal(t, "Смартфон X", meta.OGTitle)
	assert.Equal(t, []string{"https://cdn.ozon.ru/1.jpg", "https://cdn.ozon.ru/2.jpg"}, meta.OGImages)
	assert.Equal(t, "Описание из меты", meta.Description)
	assert.Equal(t, "Смартфон X 128 ГБ", meta.H1)
}

func TestExtractMeta_Empty(t *testing.T) {
	assert.Nil(t, ParseHTML("  \n"))
	meta := ExtractMeta("", ParseHTML(""))
	assert.Empty(t, meta.Title)
	assert.Empty(t, meta.OGImages)
}

func TestDataState(t *testing.T) {
	doc := ParseHTML(samplePage)
	require.NotNil(t, doc)
	state, ok := DataState(doc, "state-webPrice-")
	require.True(t, ok)
	assert.Equal(t, `{"cardPrice":"9 990 ₽","price":"12 990 ₽"}`, state)

	_, ok = DataState(doc, "state-webGallery-")
	assert.False(t, ok)
	_, ok = DataState(nil, "state-webPrice-")
	assert.False(t, ok)
}

func TestDescription(t *testing.T) {
	c := NewCleaner(30)

	assert.Nil(t, c.Description(nil))

	plain := "Простое описание"
	got := c.Description(&plain)
	require.NotNil(t, got)
	assert.Equal(t, plain, *got)

	markup := "<p>Хлопок <b>100%</b></p><script>alert(1)</script>"
	got = c.Description(&markup)
	require.NotNil(t, got)
	assert.NotContains(t, *got, "<p>")
	assert.NotContains(t, *got, "alert")
	assert.Contains(t, *got, "Хлопок")

	long := strings.Repeat("текст ", 20)
	got = c.Description(&long)
	require.NotNil(t, got)
	assert.True(t, strings.HasSuffix(*got, "…"))
}
