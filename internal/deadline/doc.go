// Package deadline is the pure core of the bot: parsing obligation rows,
// deciding which records fire on a reference date, and rendering reminder
// and report texts. Nothing here touches the network, the clock (except
// Today) or any shared state.
package deadline
