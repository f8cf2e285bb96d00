// Package wasapi implements an audiodev binding over the Windows Core Audio API.
//
// Endpoints come from the MMDevice enumerator, volume, mute and peak readings from
// IAudioEndpointVolume and IAudioMeterInformation. Default endpoints are assigned through the
// undocumented PolicyConfig COM class, which exposes a different interface on each Windows
// generation: IPolicyConfig10 (Windows 10 and later), IPolicyConfig (Windows 7) and
// IPolicyConfigVista. All COM calls run on one OS thread owned by the binding.
package wasapi
