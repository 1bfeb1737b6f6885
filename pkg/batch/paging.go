package batch

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/graph-batch-client/pkg/request"
)

// bogusNextEndpoint marks pagination links the provider emits even though
// they dereference to nothing useful.
const bogusNextEndpoint = "/server.php"

// NextPage forces completion and returns the follow-up call for the next
// page, enqueueing it lazily when the paging metadata warrants one. It
// returns nil when no further page exists. The successor is cached, so
// repeated calls return the same handle without re-enqueueing.
func (c *Call) NextPage(ctx context.Context) (*Call, error) {
	if err := c.sync(ctx); err != nil {
		return nil, err
	}
	return c.discoverNext(), nil
}

// discoverNext inspects the resolved response for a usable next link and
// enqueues the successor. It assumes the call is already resolved.
func (c *Call) discoverNext() *Call {
	if c.next != nil {
		return c.next
	}
	if c.resp == nil {
		return nil
	}

	link, ok := nextLink(c.resp.Fields)
	if !ok {
		return nil
	}

	if strings.Contains(link, bogusNextEndpoint) {
		c.queue.logger.Debug().Str("next", link).Msg("ignoring bogus pagination link")
		return nil
	}

	// The provider offers next links past the end of short pages; a page
	// shorter than its declared limit is the last one. Fetching past the
	// end is itself an error on some endpoints.
	if limit, ok := declaredLimit(c.resp.Fields, link); ok && c.currentCount() < limit {
		return nil
	}

	if succ := c.enqueueSuccessor(link); succ != nil {
		c.next = succ
		pagesFollowedTotal.Inc()
	}
	return c.next
}

// currentCount returns the item count of this page's data list.
func (c *Call) currentCount() int {
	list, ok := c.resp.Fields["data"].([]any)
	if !ok {
		return 0
	}
	return len(list)
}

// nextLink digs paging.next out of the merged response fields.
func nextLink(fields map[string]any) (string, bool) {
	paging, ok := fields["paging"].(map[string]any)
	if !ok {
		return "", false
	}
	link, ok := paging["next"].(string)
	return link, ok && link != ""
}

// declaredLimit resolves the page-size limit from the response body or,
// failing that, from the next link's query. A missing or non-numeric
// limit reports false, and pagination proceeds.
func declaredLimit(fields map[string]any, link string) (int, bool) {
	if n, ok := numeric(fields["limit"]); ok && n > 0 {
		return n, true
	}
	u, err := url.Parse(link)
	if err != nil {
		return 0, false
	}
	if raw := u.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// enqueueSuccessor builds and queues the follow-up call for link. The
// link is pre-authorized and self-contained, so the successor carries no
// token or params of its own; quiet, hooks and auto-paging carry over
// from the current call.
func (c *Call) enqueueSuccessor(link string) *Call {
	u, err := url.Parse(link)
	if err != nil {
		c.queue.logger.Debug().Err(err).Str("next", link).Msg("unparseable pagination link")
		return nil
	}
	desc := request.Descriptor{
		Method: c.desc.Method,
		Path:   strings.TrimPrefix(u.RequestURI(), "/"),
	}
	succ, err := c.queue.NewCall(desc)
	if err != nil {
		c.queue.logger.Debug().Err(err).Str("next", link).Msg("cannot build next page call")
		return nil
	}
	succ.quiet = c.quiet
	succ.hooks = c.hooks
	succ.autoPage = c.autoPage
	return c.queue.Append(succ, true)
}
