package glasir

import (
	"reflect"
	"testing"
)

func TestParseHomework(t *testing.T) {
	tests := []struct {
		name string
		page string
		want map[string]string
	}{
		{
			name: "plain text with bold span",
			page: `<html><body>
<input type="hidden" id="LektionsID" value="12345">
<p><b>Heimaarbeiði</b><br>Read <b>ch. 3</b></p>
</body></html>`,
			want: map[string]string{"12345": "Read **ch. 3**"},
		},
		{
			name: "line breaks and italics",
			page: `<html><body>
<input id="LektionsIDA1" value="67890">
<p><b>Heimaarbeiði</b><br>Lesið <i>Gísla sögu</i><br>síðu 10-20</p>
</body></html>`,
			want: map[string]string{"67890": "Lesið *Gísla sögu*\nsíðu 10-20"},
		},
		{
			name: "whitespace between header and its break",
			page: `<html><body>
<input id="LektionsID" value="111">
<p><b>Heimaarbeiði</b>
<br>Uppgáva 4</p>
</body></html>`,
			want: map[string]string{"111": "Uppgáva 4"},
		},
		{
			name: "trailing spaces around line breaks collapsed",
			page: `<html><body>
<input id="LektionsID" value="222">
<p><b>Heimaarbeiði</b><br>fyrsta linja   <br>   onnur linja</p>
</body></html>`,
			want: map[string]string{"222": "fyrsta linja\nonnur linja"},
		},
		{
			name: "no lesson id input",
			page: `<html><body><p><b>Heimaarbeiði</b><br>text</p></body></html>`,
			want: map[string]string{},
		},
		{
			name: "no homework header",
			page: `<html><body>
<input id="LektionsID" value="333">
<p><b>Viðmerking</b><br>not homework</p>
</body></html>`,
			want: map[string]string{},
		},
		{
			name: "header present but body empty",
			page: `<html><body>
<input id="LektionsID" value="444">
<p><b>Heimaarbeiði</b><br>   </p>
</body></html>`,
			want: map[string]string{},
		},
		{
			name: "header bold outside a paragraph ignored",
			page: `<html><body>
<input id="LektionsID" value="555">
<div><b>Heimaarbeiði</b><br>wrong container</div>
</body></html>`,
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseHomework(tt.page)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseHomework() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseHomework_NestedFormattingFlattened(t *testing.T) {
	page := `<html><body>
<input id="LektionsID" value="777">
<p><b>Heimaarbeiði</b><br>Les <b>kap. <i>5</i></b> til mánadag</p>
</body></html>`

	got := ParseHomework(page)
	want := "Les **kap. *5*** til mánadag"
	if got["777"] != want {
		t.Errorf("markdown = %q, want %q", got["777"], want)
	}
}
