package chromectl

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromectl/chromectl/protocol"
)

// NavigateTo navigates to url and marks the tab navigating, per spec.md
// §4.6 "navigate_to(url)".
func (t *Tab) NavigateTo(ctx context.Context, url string) error {
	res, err := protocol.Navigate(url).Do(ctx, t)
	if err != nil {
		return err
	}
	if res.ErrorText != "" {
		return &NavigationError{URL: url, Text: res.ErrorText}
	}
	atomic.StoreInt32(&t.navigating, navInFlight)
	return nil
}

// WaitUntilNavigated blocks until navigating transitions to true and back
// to false, bounded by 20s per spec.md §4.6.
func (t *Tab) WaitUntilNavigated(ctx context.Context) error {
	deadline := time.Now().Add(20 * time.Second)
	sawInFlight := atomic.LoadInt32(&t.navigating) == navInFlight

	ticker := time.NewTicker(t.pollEvery)
	defer ticker.Stop()
	for {
		if sawInFlight && atomic.LoadInt32(&t.navigating) == navIdle {
			return nil
		}
		if !sawInFlight && atomic.LoadInt32(&t.navigating) == navInFlight {
			sawInFlight = true
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reload reloads the current page (SPEC_FULL.md supplement, original_source
// parity).
func (t *Tab) Reload(ctx context.Context) error {
	t.sleepSlowMotion(100 * time.Millisecond)
	if err := protocol.Reload().Do(ctx, t); err != nil {
		return err
	}
	atomic.StoreInt32(&t.navigating, navInFlight)
	return nil
}

// FindElement resolves selector to the element's remote object via
// DOM.getDocument + DOM.querySelector + DOM.resolveNode; the element's
// backend node id is not returned. Returns ErrElementNotFound if no match
// exists, and also in place of the browser's "Could not find node with
// given id" race error (spec.md §6).
func (t *Tab) FindElement(ctx context.Context, selector string) (*protocol.RemoteObject, error) {
	root, err := protocol.GetDocument().Do(ctx, t)
	if err != nil {
		return nil, err
	}

	nodeID, err := protocol.QuerySelector(root.NodeID, selector).Do(ctx, t)
	if err != nil {
		return nil, remapNotFoundErr(err)
	}
	if nodeID == protocol.EmptyNodeID {
		return nil, ErrElementNotFound
	}

	obj, err := protocol.ResolveNode(nodeID).Do(ctx, t)
	if err != nil {
		return nil, remapNotFoundErr(err)
	}
	return obj, nil
}

// FindElementByXPath resolves an XPath query via DOM.performSearch +
// DOM.getSearchResults, per spec.md §4.6.
func (t *Tab) FindElementByXPath(ctx context.Context, xpath string) (*protocol.RemoteObject, error) {
	searchID, count, err := protocol.PerformSearch(xpath).Do(ctx, t)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrElementNotFound
	}

	nodeIDs, err := protocol.GetSearchResults(searchID, 0, 1).Do(ctx, t)
	if err != nil {
		return nil, remapNotFoundErr(err)
	}
	if len(nodeIDs) == 0 || nodeIDs[0] == protocol.EmptyNodeID {
		return nil, ErrElementNotFound
	}

	obj, err := protocol.ResolveNode(nodeIDs[0]).Do(ctx, t)
	if err != nil {
		return nil, remapNotFoundErr(err)
	}
	return obj, nil
}

// scrollIntoViewScript is original_source's Element::scroll_into_view body
// verbatim: wait for an IntersectionObserver reading, then scroll only if
// the element isn't already fully visible.
const scrollIntoViewScript = `async function() {
	if (!this.isConnected)
		return 'Node is detached from document';
	if (this.nodeType !== Node.ELEMENT_NODE)
		return 'Node is not of type HTMLElement';

	const visibleRatio = await new Promise(resolve => {
		const observer = new IntersectionObserver(entries => {
			resolve(entries[0].intersectionRatio);
			observer.disconnect();
		});
		observer.observe(this);
	});

	if (visibleRatio !== 1.0)
		this.scrollIntoView({block: 'center', inline: 'center', behavior: 'instant'});
	return false;
}`

// ScrollIntoView scrolls obj into the viewport, per spec.md §7's "the
// injected scroll-into-view script returned a string instead of boolean
// false". CaptureElementScreenshot runs this on the element FindElement
// returns before capturing it.
func (t *Tab) ScrollIntoView(ctx context.Context, obj *protocol.RemoteObject) error {
	result, _, err := protocol.CallFunctionOn(scrollIntoViewScript).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(true).
		WithAwaitPromise(true).
		Do(ctx, t)
	if err != nil {
		return err
	}
	if result.Type == "string" {
		text, _ := result.Value.(string)
		return fmt.Errorf("%w: %s", ErrScrollFailed, text)
	}
	return nil
}

// remapNotFoundErr recognizes the browser's "Could not find node with given
// id" remote error message, a known race with in-flight navigation, and
// maps it to ErrElementNotFound so wait_for_element's retry loop treats it
// like any other not-found (spec.md §6).
func remapNotFoundErr(err error) error {
	if re, ok := err.(*RemoteError); ok {
		if re.Message == "Could not find node with given id" {
			return ErrElementNotFound
		}
	}
	return err
}

// WaitForElement polls FindElement with the tab's default timeout,
// retrying not-found and surfacing any other error immediately.
func (t *Tab) WaitForElement(ctx context.Context, selector string) (*protocol.RemoteObject, error) {
	return t.WaitForElementWithCustomTimeout(ctx, selector, t.timeout)
}

// WaitForElementWithCustomTimeout is WaitForElement with an explicit
// timeout (spec.md §4.6 "wait_for_element[_with_custom_timeout]").
func (t *Tab) WaitForElementWithCustomTimeout(ctx context.Context, selector string, timeout time.Duration) (*protocol.RemoteObject, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(t.pollEvery)
	defer ticker.Stop()

	for {
		obj, err := t.FindElement(ctx, selector)
		if err == nil {
			return obj, nil
		}
		if err != ErrElementNotFound {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
