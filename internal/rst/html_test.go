package rst

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHTML(t *testing.T) {
	for _, test := range []struct {
		name, in, want string
	}{
		{
			name: "inline",
			in:   "Some *emph*, **strong** and ``code``.",
			want: "<p>Some <em>emph</em>, <strong>strong</strong> and <code>code</code>.</p>",
		},
		{
			name: "escaping",
			in:   "a < b & c",
			want: "<p>a &lt; b &amp; c</p>",
		},
		{
			name: "reference",
			in:   "`home <https://www.softwareheritage.org/>`__",
			want: `<p><a href="https://www.softwareheritage.org/">home</a></p>`,
		},
		{
			name: "unsafe reference",
			in:   "`x <javascript:alert(1)>`__",
			want: `<p><a href="about:invalid#zGoSafez">x</a></p>`,
		},
		{
			name: "lists and fields",
			in:   "* one\n\n:param int n: count",
			want: "<ul><li><p>one</p></li></ul>" +
				`<dl class="field-list"><dt>param int n</dt><dd><p>count</p></dd></dl>`,
		},
		{
			name: "literal block",
			in:   "::\n\n    {}",
			want: `<pre class="literal-block">{}</pre>`,
		},
		{
			name: "warning",
			in:   ".. warning:: gone",
			want: `<div class="admonition warning"><p class="admonition-title">Warning</p><p>gone</p></div>`,
		},
		{
			name: "targets and messages are dropped",
			in:   ".. _x: https://example.org\n\n.. nope::",
			want: "",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := HTML(Parse(test.in, Options{ReportLevel: ReportNone})).String()
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
