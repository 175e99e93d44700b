// Package scene is the retained composition tree that templates render into
// and the exporter rasterizes.
//
// # Model
//
// A [Document] hosts one [Component] together with its props and local
// state. Rendering produces a tree of [Node] values: [Box], [Image], [Text]
// and [Orb]. Changing props or state re-renders the component immediately.
//
// Image nodes point at an [Element], the equivalent of an <img> element: it
// has a source URL, a load state, a load-or-error event ([Element.Done]) and
// natural dimensions. Elements survive re-renders as long as their id and
// source stay the same, so a loaded image is not fetched again when
// unrelated state changes.
//
// # Decoding and load hooks
//
// Loading fetches bytes; decoding into pixels is lazy and happens the first
// time a rasterizer draws the element. The first successful decode fires the
// element's keyed load hooks ([Element.OnLoad]), each exactly once. Hooks
// run as tracked derivations of the document ([Document.Go]), and
// [Document.WaitSettled] blocks until every derivation has finished and the
// re-renders they caused are done. This is the explicit "visual settled"
// signal the exporter waits for between its warm-up and final captures.
//
// # Concurrency
//
// Documents and elements are safe for concurrent use. Components render
// while the document lock is held and must not call back into the
// document; they receive a [Renderer] instead.
package scene
