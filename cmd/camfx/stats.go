package main

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/camfx/app"
)

func printStats(w io.Writer, st app.Stats) {
	p := message.NewPrinter(language.English)
	r := st.Renderer
	p.Fprintf(w, "ticks:       %d (%d idle)\n", r.Ticks, r.Idle)
	p.Fprintf(w, "presented:   %d of %d drawn, %d failed\n", r.Presented, r.Drawn, r.Failed)
	p.Fprintf(w, "skipped:     %d conversion, %d drawable, %d other\n",
		r.ConversionSkips, r.DrawableSkips, r.OtherSkips)
	p.Fprintf(w, "frames:      %d captured, %d superseded\n", st.Mailbox.Stored, st.Mailbox.Dropped)
	p.Fprintf(w, "textures:    %d hits, %d misses, %d evictions\n",
		st.Bridge.Hits, st.Bridge.Misses, st.Bridge.Evictions)
	p.Fprintf(w, "kernel:      %s (%d switches)\n", st.Kernel.Name, st.Switches)
}
