/*
Package session manages the Host's panel session.

A Manager holds at most one live Session. The first Acquire opens a panel through the
configured ports.PanelFactory; later calls return the same Session until it is disposed,
either by the Host (Dispose) or by the Panel (the user closed it).
*/
package session
