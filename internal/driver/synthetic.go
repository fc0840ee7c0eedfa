package driver

// syntheticUI stands in for the options page when none of the extension
// pages can be opened, so later steps still find their elements. It has no
// behavior of its own: clicking the button does nothing.
const syntheticUI = `
<h1>YouTube Subtitle Downloader (harness)</h1>
<div>
  <input type="text" id="videoUrl" placeholder="YouTube video URL" style="width: 400px;">
  <div>
    <label><input type="radio" name="subtitleType" id="autoGenerated" value="auto" checked> Auto-generated</label>
    <label><input type="radio" name="subtitleType" id="manual" value="manual"> Manual</label>
  </div>
  <div>
    <label><input type="radio" name="format" id="txt" value="txt" checked> TXT</label>
    <label><input type="radio" name="format" id="srt" value="srt"> SRT</label>
    <label><input type="radio" name="format" id="vtt" value="vtt"> VTT</label>
  </div>
  <button id="getSubtitles">Download subtitles</button>
</div>
<div id="status" style="margin-top: 10px;"></div>
`
