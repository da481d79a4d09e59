package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/transport"
)

var _ = Describe("LogTransport", func() {
	var (
		ctx context.Context
		buf *bytes.Buffer
		tr  *transport.LogTransport
	)

	records := func() []map[string]any {
		var out []map[string]any
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			if line == "" {
				continue
			}
			var rec map[string]any
			Expect(json.Unmarshal([]byte(line), &rec)).To(Succeed())
			out = append(out, rec)
		}
		return out
	}

	BeforeEach(func() {
		ctx = context.Background()
		buf = &bytes.Buffer{}
		tr = transport.NewLogTransport(slog.New(slog.NewJSONHandler(buf, nil)))
	})

	It("satisfies the transport contract", func() {
		var _ transport.Transport = tr
		var _ transport.Transport = (*transport.RedisGateway)(nil)
	})

	It("logs solicitations with their handle", func() {
		Expect(tr.Solicit(ctx, 7, "h-1", "Need a healer")).To(Succeed())

		recs := records()
		Expect(recs).To(HaveLen(1))
		Expect(recs[0]).To(HaveKeyWithValue("msg", "solicit"))
		Expect(recs[0]).To(HaveKeyWithValue("handle", "h-1"))
		Expect(recs[0]).To(HaveKeyWithValue("participant_id", BeEquivalentTo(7)))
	})

	It("mints a distinct handle per post", func() {
		first, err := tr.PostRun(ctx, 55, "run text")
		Expect(err).NotTo(HaveOccurred())
		second, err := tr.PostRun(ctx, 55, "run text")
		Expect(err).NotTo(HaveOccurred())

		Expect(first).NotTo(BeEmpty())
		Expect(first).NotTo(Equal(second))
		Expect(records()[0]).To(HaveKeyWithValue("handle", first))
	})

	It("logs edits and deletes by handle", func() {
		Expect(tr.EditRun(ctx, "p-1", "updated")).To(Succeed())
		Expect(tr.DeleteRun(ctx, "p-1")).To(Succeed())

		recs := records()
		Expect(recs).To(HaveLen(2))
		Expect(recs[0]).To(HaveKeyWithValue("msg", "edit run"))
		Expect(recs[1]).To(HaveKeyWithValue("msg", "delete run"))
	})

	It("aliases the domain unreachable error", func() {
		Expect(errors.Is(transport.ErrUnreachable, domain.ErrTransportUnreachable)).To(BeTrue())
	})
})
